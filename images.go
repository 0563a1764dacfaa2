package orgsite

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/orgsite/content"
)

const maxUploadSize = 10 << 20 // 10MB

func imageError(msg string) error {
	return &content.ValidationError{Fields: []content.FieldError{{Field: "image", Message: msg}}}
}

// withRuleErrors adds the record's own rule failures to an image
// validation error so the form lists every problem at once.
func withRuleErrors[T any](err error, rules content.RuleSet[T], rec T) error {
	var v *content.ValidationError
	if !errors.As(err, &v) {
		return err
	}
	merged := &content.ValidationError{Fields: append([]content.FieldError(nil), v.Fields...)}
	var more *content.ValidationError
	if errors.As(rules.Check(content.Draft[T]{Record: rec}), &more) {
		for _, f := range more.Fields {
			if !merged.Has(f.Field) {
				merged.Fields = append(merged.Fields, f)
			}
		}
	}
	return merged
}

// formImage reads the optional "image" file field and returns it resized and
// JPEG encoded. No file yields (nil, nil); a file that is too large or not
// an image is reported as a validation error on the image field.
func formImage(c echo.Context) (*content.Upload, error) {
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if file.Size == 0 {
		return nil, nil
	}
	if file.Size > maxUploadSize {
		return nil, imageError("Image is too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	upload, err := content.ProcessImage(src, file.Filename)
	if err != nil {
		return nil, imageError("Image could not be read; upload a JPEG, PNG or GIF")
	}
	return upload, nil
}
