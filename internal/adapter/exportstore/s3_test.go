package exportstore

import (
	"context"
	"errors"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/burenotti/go_routines_backend/internal/adapter/interchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"net/http"
	"testing"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{
		URL:          "https://files.test/" + *in.Bucket + "/" + *in.Key + "?sig=1",
		Method:       http.MethodGet,
		SignedHeader: http.Header{},
	}, nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("t-1", "r-1", "Legs & Core.csv")
	require.NoError(t, err)
	assert.Equal(t, "t-1/r-1/Legs & Core.csv", key)

	for _, name := range []string{"../etc/passwd", "a/b.json", `a\b.json`, "..json", "tab\there.csv", "", "   "} {
		_, err := ObjectKey("t-1", "r-1", name)
		assert.ErrorIs(t, err, ErrUnsafeFilename, name)
	}

	_, err = ObjectKey("../t-1", "r-1", "ok.json")
	assert.ErrorIs(t, err, ErrUnsafeFilename)
}

func TestStore(t *testing.T) {
	putter := &fakePutter{}
	archive := NewArchive(putter, fakePresigner{}, "bucket", "/exports/", 0, discard)

	f := &interchange.File{Content: []byte(`{"a":1}`), Filename: "Legs.json", ContentType: "application/json"}
	location, err := archive.Store(context.Background(), "t-1", "r-1", f)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/bucket/exports/t-1/r-1/Legs.json?sig=1", location)

	require.Len(t, putter.inputs, 1)
	in := putter.inputs[0]
	assert.Equal(t, "exports/t-1/r-1/Legs.json", *in.Key)
	assert.Equal(t, "application/json", *in.ContentType)
	assert.Equal(t, `attachment; filename=Legs.json`, *in.ContentDisposition)
	assert.Equal(t, `{"a":1}`, string(putter.bodies[0]))
}

func TestStoreWithoutPresigner(t *testing.T) {
	archive := NewArchive(&fakePutter{}, nil, "bucket", "", 0, discard)

	location, err := archive.Store(context.Background(), "t-1", "r-1", &interchange.File{Filename: "Legs.csv"})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/t-1/r-1/Legs.csv", location)
}

func TestStoreRejectsUnsafeTitle(t *testing.T) {
	putter := &fakePutter{}
	archive := NewArchive(putter, nil, "bucket", "", 0, discard)

	_, err := archive.Store(context.Background(), "t-1", "r-1", &interchange.File{Filename: "../../Legs.csv"})
	assert.ErrorIs(t, err, ErrUnsafeFilename)
	assert.Empty(t, putter.inputs)
}

func TestStoreUploadFailure(t *testing.T) {
	archive := NewArchive(&fakePutter{err: errors.New("boom")}, nil, "bucket", "", 0, discard)

	_, err := archive.Store(context.Background(), "t-1", "r-1", &interchange.File{Filename: "Legs.csv"})
	assert.ErrorContains(t, err, "boom")
}
