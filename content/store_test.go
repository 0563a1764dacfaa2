package content

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/orgsite/backend"
	"github.com/eringen/orgsite/backend/backendtest"
)

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*Store, *backendtest.Fake) {
	t.Helper()
	fake := backendtest.New()
	fake.Now = func() time.Time { return testNow }
	return NewStore(fake, WithClock(func() time.Time { return testNow })), fake
}

func testUpload() *Upload {
	return &Upload{Name: "Team Photo.PNG", ContentType: "image/jpeg", Data: []byte("jpeg")}
}

func TestCreateEventTomorrowIsUpcomingAndPublished(t *testing.T) {
	s, fake := setupTestStore(t)
	ctx := context.Background()

	id, err := s.SaveEvent(ctx, Draft[Event]{Record: Event{
		Title:     "Workshop",
		EventDate: testNow.AddDate(0, 0, 1).Truncate(24 * time.Hour),
	}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	inserts := fake.CallsTo("Insert")
	require.Len(t, inserts, 1)
	assert.Equal(t, true, inserts[0].Rows[0]["is_published"])
	assert.Equal(t, "2024-06-16", inserts[0].Rows[0]["event_date"])

	events, err := s.ListEvents(ctx, true)
	require.NoError(t, err)
	upcoming, past := PartitionEvents(events, s.Now(), StartOfDay)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Workshop", upcoming[0].Title)
	assert.True(t, upcoming[0].IsPublished)
	assert.Empty(t, past)
}

func TestCreateEventYesterdayIsPast(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.SaveEvent(ctx, Draft[Event]{Record: Event{
		Title:     "Orientation",
		EventDate: testNow.AddDate(0, 0, -1).Truncate(24 * time.Hour),
	}})
	require.NoError(t, err)

	events, err := s.ListEvents(ctx, false)
	require.NoError(t, err)
	upcoming, past := PartitionEvents(events, s.Now(), StartOfDay)
	assert.Empty(t, upcoming)
	require.Len(t, past, 1)
	assert.Equal(t, "Orientation", past[0].Title)
}

func TestRequiredFieldMissingNeverWrites(t *testing.T) {
	s, fake := setupTestStore(t)
	ctx := context.Background()

	_, err := s.SaveBlog(ctx, Draft[BlogPost]{Record: BlogPost{Title: "Hello", Author: " "}, Image: testUpload()})
	var v *ValidationError
	require.True(t, errors.As(err, &v))
	assert.True(t, v.Has("author"))
	assert.True(t, v.Has("category"))
	assert.True(t, v.Has("content"))
	assert.False(t, v.Has("title"))

	_, err = s.SaveEvent(ctx, Draft[Event]{Record: Event{Title: "No date"}})
	require.True(t, errors.As(err, &v))
	assert.True(t, v.Has("event_date"))

	_, err = s.SaveTeamMember(ctx, Draft[TeamMember]{Record: TeamMember{Name: "Ada"}})
	require.True(t, errors.As(err, &v))

	assert.Empty(t, fake.Calls(), "validation failures must not reach the backend")
}

func TestGalleryAchievementWithoutDriveLinkIsBlocked(t *testing.T) {
	s, fake := setupTestStore(t)

	_, err := s.SaveGallery(context.Background(), Draft[GalleryItem]{
		Record: GalleryItem{EventName: "Hackathon win", Type: GalleryAchievement},
		Image:  testUpload(),
	})
	var v *ValidationError
	require.True(t, errors.As(err, &v))
	assert.True(t, v.Has("drive_url"))
	assert.Contains(t, err.Error(), "Drive link is required")
	assert.Empty(t, fake.CallsTo("Insert"))
	assert.Zero(t, fake.Writes())
}

func TestGalleryCopiesEventDateAndLocation(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.Seed(TableEvents, backend.Row{"id": "ev1", "title": "Expo", "event_date": "2024-05-01", "location": "Hall A"})

	_, err := s.SaveGallery(context.Background(), Draft[GalleryItem]{
		Record: GalleryItem{EventName: "Expo", EventID: "ev1", Type: GalleryEvent, DriveURL: "ignored"},
		Image:  testUpload(),
	})
	require.NoError(t, err)

	rows := fake.Rows(TableGallery)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-05-01", rows[0]["event_date"])
	assert.Equal(t, "Hall A", rows[0]["event_location"])
	assert.Nil(t, rows[0]["drive_url"])

	url := rows[0]["image_url"].(string)
	assert.True(t, strings.HasPrefix(url, "https://files.test/gallery/gallery/"), url)
	assert.True(t, strings.HasSuffix(url, "-team-photo.jpg"), url)
}

func TestUploadPrecedesInsert(t *testing.T) {
	s, fake := setupTestStore(t)

	_, err := s.SaveBlog(context.Background(), Draft[BlogPost]{
		Record: BlogPost{Title: "T", Author: "A", Category: "C", Content: "Body"},
		Image:  testUpload(),
	})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Upload", calls[0].Method)
	assert.Equal(t, BucketBlogImages, calls[0].Table)
	assert.Equal(t, "Insert", calls[1].Method)
	assert.Equal(t, "https://files.test/"+BucketBlogImages+"/"+calls[0].ID, calls[1].Rows[0]["image_url"])
}

func TestEditBlogWithoutNewImageKeepsURL(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.Seed(TableBlogs, backend.Row{"id": "b1", "title": "Old", "author": "A", "category": "C", "content": "x",
		"image_url": "https://files.test/blog-images/orig.jpg", "is_published": false})

	post, err := s.GetBlog(context.Background(), "b1", false)
	require.NoError(t, err)
	post.Title = "New"

	_, err = s.SaveBlog(context.Background(), Draft[BlogPost]{Record: post})
	require.NoError(t, err)

	updates := fake.CallsTo("Update")
	require.Len(t, updates, 1)
	assert.Equal(t, "b1", updates[0].ID)
	patch := updates[0].Rows[0]
	assert.Equal(t, "https://files.test/blog-images/orig.jpg", patch["image_url"])
	_, touchesPublish := patch["is_published"]
	assert.False(t, touchesPublish, "editing must not change visibility")
	assert.Empty(t, fake.CallsTo("Upload"))
}

func TestPublishToggleTwiceRestores(t *testing.T) {
	s, fake := setupTestStore(t)
	ctx := context.Background()
	fake.Seed(TableBlogs, backend.Row{"id": "b1", "title": "T", "is_published": true})

	for i := 0; i < 2; i++ {
		p, err := s.GetBlog(ctx, "b1", false)
		require.NoError(t, err)
		require.NoError(t, s.SetPublished(ctx, TableBlogs, "b1", p.IsPublished))
	}

	p, err := s.GetBlog(ctx, "b1", false)
	require.NoError(t, err)
	assert.True(t, p.IsPublished)

	updates := fake.CallsTo("Update")
	require.Len(t, updates, 2)
	assert.Equal(t, backend.Row{"is_published": false}, updates[0].Rows[0])
	assert.Equal(t, backend.Row{"is_published": true}, updates[1].Rows[0])

	assert.Error(t, s.SetPublished(ctx, TableTeam, "x", true))
}

func TestHiddenBlogNotFoundPublicly(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.Seed(TableBlogs, backend.Row{"id": "b1", "title": "Draft", "is_published": false})

	_, err := s.GetBlog(context.Background(), "b1", true)
	assert.ErrorIs(t, err, backend.ErrNotFound)
	_, err = s.GetBlog(context.Background(), "missing", false)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestFailedWriteRemovesUpload(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.ErrInsert = &backend.Error{Op: "insert", Status: 403, Message: "new row violates row-level security policy"}

	_, err := s.SaveTeamMember(context.Background(), Draft[TeamMember]{
		Record: TeamMember{Name: "Ada", Position: "Chair", Role: RoleFaculty},
		Image:  testUpload(),
	})
	require.Error(t, err)
	assert.Equal(t, "new row violates row-level security policy", backend.Message(err, "Failed"))

	uploads := fake.CallsTo("Upload")
	removes := fake.CallsTo("Remove")
	require.Len(t, uploads, 1)
	require.Len(t, removes, 1)
	assert.Equal(t, uploads[0].ID, removes[0].ID)
	_, stored := fake.Object(BucketTeamImages, uploads[0].ID)
	assert.False(t, stored)
}

func TestFailedRemoveStillReportsWriteError(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.ErrInsert = errors.New("db down")
	fake.ErrRemove = errors.New("storage down")

	_, err := s.SaveBlog(context.Background(), Draft[BlogPost]{
		Record: BlogPost{Title: "T", Author: "A", Category: "C", Content: "x"},
		Image:  testUpload(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestUploadFailureAbortsWrite(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.ErrUpload = &backend.Error{Op: "upload", Status: 413, Message: "Payload too large"}

	_, err := s.SaveEvent(context.Background(), Draft[Event]{
		Record: Event{Title: "E", EventDate: testNow},
		Image:  testUpload(),
	})
	assert.Equal(t, "Payload too large", backend.Message(err, ""))
	assert.Empty(t, fake.CallsTo("Insert"))
}

func TestForumOpeningNeedsApplyLink(t *testing.T) {
	s, fake := setupTestStore(t)
	ctx := context.Background()

	_, err := s.SaveForum(ctx, Draft[ForumPost]{Record: ForumPost{Title: "Intern", Content: "Apply", Category: "IT"}}, true)
	var v *ValidationError
	require.True(t, errors.As(err, &v))
	assert.True(t, v.Has("apply_link"))

	_, err = s.SaveForum(ctx, Draft[ForumPost]{Record: ForumPost{Title: "News", Content: "Hi", Category: "IT", ApplyLink: "https://x"}}, false)
	require.NoError(t, err)
	rows := fake.Rows(TableForums)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0]["apply_link"])
}

func TestDeleteTeamMember(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.Seed(TableTeam, backend.Row{"id": "m1", "name": "Ada"}, backend.Row{"id": "m2", "name": "Bob"})

	require.NoError(t, s.DeleteTeamMember(context.Background(), "m1"))
	team, err := s.ListTeam(context.Background())
	require.NoError(t, err)
	require.Len(t, team, 1)
	assert.Equal(t, "Bob", team[0].Name)
}

func TestAboutSectionsInPageOrder(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.Seed(TableAbout,
		backend.Row{"id": "3", "section_title": "Our Vision"},
		backend.Row{"id": "9", "section_title": "History"},
		backend.Row{"id": "1", "section_title": "Who We Are"},
		backend.Row{"id": "2", "section_title": "Our Mission"},
	)
	sections, err := s.AboutSections(context.Background())
	require.NoError(t, err)
	var titles []string
	for _, sec := range sections {
		titles = append(titles, sec.SectionTitle)
	}
	assert.Equal(t, []string{"Who We Are", "Our Mission", "Our Vision", "History"}, titles)
}

func TestSaveAboutValidatesEverySectionFirst(t *testing.T) {
	s, fake := setupTestStore(t)
	err := s.SaveAbout(context.Background(), []AboutSection{
		{ID: "1", SectionTitle: "Who We Are", Content: "x"},
		{ID: "2", SectionTitle: ""},
	})
	var v *ValidationError
	require.True(t, errors.As(err, &v))
	assert.Zero(t, fake.Writes())
}

func TestMembershipSettings(t *testing.T) {
	s, fake := setupTestStore(t)
	ctx := context.Background()
	fake.Seed(TableMembership, backend.Row{"id": 1, "enabled": false, "form_url": ""})

	err := s.SaveMembership(ctx, MembershipSettings{Enabled: true})
	var v *ValidationError
	require.True(t, errors.As(err, &v))

	require.NoError(t, s.SaveMembership(ctx, MembershipSettings{Enabled: true, FormURL: " https://forms.gle/x "}))
	m, err := s.Membership(ctx)
	require.NoError(t, err)
	assert.True(t, m.Enabled)
	assert.Equal(t, "https://forms.gle/x", m.FormURL)
}

func TestUpcomingEventsQuery(t *testing.T) {
	s, fake := setupTestStore(t)
	fake.Seed(TableEvents,
		backend.Row{"id": "a", "event_date": "2024-06-15", "is_published": true},
		backend.Row{"id": "b", "event_date": "2024-06-20", "is_published": true},
		backend.Row{"id": "c", "event_date": "2024-06-10", "is_published": true},
		backend.Row{"id": "d", "event_date": "2024-06-16", "is_published": false},
	)
	events, err := s.UpcomingEvents(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(events))
}

func TestRowDecodingAcrossBackends(t *testing.T) {
	sqlite := blogFromRow(backend.Row{"id": "x", "is_published": int64(1), "created_at": "2024-06-15T10:00:00.000000Z"})
	rest := blogFromRow(backend.Row{"id": "x", "is_published": true, "created_at": "2024-06-15T10:00:00+00:00"})
	assert.True(t, sqlite.IsPublished)
	assert.True(t, rest.IsPublished)
	assert.True(t, sqlite.CreatedAt.Equal(rest.CreatedAt))

	ev := eventFromRow(backend.Row{"event_date": "2024-06-15T00:00:00+00:00"})
	assert.Equal(t, "2024-06-15", ev.Day())
}

func TestUploadKey(t *testing.T) {
	now := time.UnixMilli(1718445600123)
	assert.Equal(t, "1718445600123-my-photo.jpg", UploadKey("", "My Photo!.png", now))
	assert.Equal(t, "gallery/1718445600123-image.jpg", UploadKey("gallery/", "???.jpeg", now))
}

func TestProcessImageResizes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1600, 400))
	for x := 0; x < 1600; x++ {
		src.Set(x, 10, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	up, err := ProcessImage(&buf, "wide.png")
	require.NoError(t, err)
	assert.Equal(t, 800, up.Width)
	assert.Equal(t, 200, up.Height)
	assert.Equal(t, "image/jpeg", up.ContentType)
	assert.Equal(t, []byte{0xFF, 0xD8}, up.Data[:2])

	_, err = ProcessImage(strings.NewReader("not an image"), "x.png")
	assert.Error(t, err)
}

func TestProcessImageKeepsThinStrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2000, 1))))

	up, err := ProcessImage(&buf, "strip.png")
	require.NoError(t, err)
	assert.Equal(t, 800, up.Width)
	assert.Equal(t, 1, up.Height)

	decoded, _, err := image.Decode(bytes.NewReader(up.Data))
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.Bounds().Dy())
}

func TestBlogDisplayDefaults(t *testing.T) {
	assert.Equal(t, 0, ReadTime(""))
	assert.Equal(t, 3, ReadTime("short"))
	assert.Equal(t, 3, ReadTime(strings.Repeat("a", 1000)))
	assert.Equal(t, 6, ReadTime(strings.Repeat("a", 1001)))

	p := BlogPost{}
	assert.Equal(t, "EESA Team", p.AuthorOr("EESA"))
	assert.Equal(t, "General", p.CategoryOrDefault())
	p.Author, p.Category = "Ada", "IT"
	assert.Equal(t, "Ada", p.AuthorOr("EESA"))
	assert.Equal(t, "IT", p.CategoryOrDefault())
}
