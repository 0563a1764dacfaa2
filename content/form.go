package content

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/orgsite/backend"
)

// Form is the submit pipeline shared by every admin form: validate, upload
// the new image if there is one, then insert or update in a single call.
type Form[T any] struct {
	Table   string
	Bucket  string // empty when the record has no image
	Prefix  string // key prefix inside Bucket
	Rules   RuleSet[T]
	Backend backend.Backend
	Logger  *zap.Logger
	Now     func() time.Time

	ID       func(T) string
	Encode   func(rec T, create bool) backend.Row
	SetImage func(rec *T, url string)
}

// Submit runs the pipeline and returns the id of the written record.
//
// Nothing reaches the backend when validation fails. When the write fails
// after an upload the new object is removed again; a failed removal is only
// logged.
func (f Form[T]) Submit(ctx context.Context, d Draft[T]) (string, error) {
	if err := f.Rules.Check(d); err != nil {
		return "", err
	}

	rec := d.Record
	uploaded := ""
	if d.Image != nil && f.Bucket != "" {
		key := UploadKey(f.Prefix, d.Image.Name, f.now())
		if err := f.Backend.Upload(ctx, f.Bucket, key, d.Image.ContentType, d.Image.Data); err != nil {
			return "", fmt.Errorf("upload image: %w", err)
		}
		f.SetImage(&rec, f.Backend.PublicURL(f.Bucket, key))
		uploaded = key
	}

	id := f.ID(rec)
	var err error
	if id == "" {
		var rows []backend.Row
		rows, err = f.Backend.Insert(ctx, f.Table, f.Encode(rec, true))
		if err == nil && len(rows) > 0 {
			id = str(rows[0], "id")
		}
	} else {
		err = f.Backend.Update(ctx, f.Table, id, f.Encode(rec, false))
	}
	if err != nil {
		if uploaded != "" {
			if rmErr := f.Backend.Remove(context.WithoutCancel(ctx), f.Bucket, uploaded); rmErr != nil {
				f.logger().Warn("orphaned upload",
					zap.String("bucket", f.Bucket),
					zap.String("key", uploaded),
					zap.Error(rmErr),
				)
			}
		}
		return "", fmt.Errorf("save %s: %w", f.Table, err)
	}
	return id, nil
}

func (f Form[T]) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f Form[T]) logger() *zap.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return zap.NewNop()
}
