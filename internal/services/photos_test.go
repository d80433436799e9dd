package services

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/themenu/internal/testutil"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (p *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.input = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	p.body = body
	return &s3.PutObjectOutput{}, nil
}

type memoryStore struct {
	keys []string
}

func (m *memoryStore) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	m.keys = append(m.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func pngDataURL(payload string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestDecodeDataURL(t *testing.T) {
	contentType, data, err := DecodeDataURL(pngDataURL("fake png bytes"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, []byte("fake png bytes"), data)

	bad := []string{
		"not a data url",
		"data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hi")),
		"data:image/png,rawbytes",
		"data:image/png;base64,!!!",
		"data:image/png;base64,",
	}
	for _, in := range bad {
		_, _, err := DecodeDataURL(in)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", in)
	}
}

func TestS3PhotoStorePutsPublicObjects(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3PhotoStoreWithClient(putter, S3Config{Bucket: "menu-photos", Region: "eu-west-1"})

	url, err := store.Put(context.Background(), "dish-photos/1.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://menu-photos.s3.eu-west-1.amazonaws.com/dish-photos/1.png", url)
	assert.Equal(t, "menu-photos", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "dish-photos/1.png", aws.ToString(putter.input.Key))
	assert.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
	assert.Equal(t, s3types.ObjectCannedACLPublicRead, putter.input.ACL)
	assert.Equal(t, []byte("png"), putter.body)

	custom := NewS3PhotoStoreWithClient(putter, S3Config{Bucket: "b", PublicURL: "https://img.example.com/"})
	url, err = custom.Put(context.Background(), "k.jpg", "image/jpeg", []byte("jpg"))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/k.jpg", url)

	failing := NewS3PhotoStoreWithClient(&fakePutter{err: errors.New("access denied")}, S3Config{Bucket: "b"})
	_, err = failing.Put(context.Background(), "k.jpg", "image/jpeg", []byte("jpg"))
	assert.ErrorContains(t, err, "access denied")
}

func TestPhotoUploadSetsDishPhoto(t *testing.T) {
	f := newFixture(t)
	dish := testutil.CreateDish(t, f.db, f.user, "tiramisu", "mascarpone")
	store := &memoryStore{}
	photos := NewPhotoService(store, f.dishes)

	updated, err := photos.Upload(f.ctx, f.user, dish.ID, pngDataURL("photo"))
	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "dish-photos/"))
	assert.True(t, strings.HasSuffix(store.keys[0], ".png"))
	assert.Equal(t, "https://cdn.example.com/"+store.keys[0], updated.PhotoURL)

	reloaded, err := f.dishes.Get(f.ctx, dish.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.PhotoURL, reloaded.PhotoURL)

	otherTeam := testutil.CreateTeam(t, f.db, "neighbours")
	neighbour := testutil.CreateUser(t, f.db, "n@example.com", otherTeam)
	_, err = photos.Upload(f.ctx, neighbour, dish.ID, pngDataURL("photo"))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Len(t, store.keys, 1, "nothing stored for a forbidden upload")
}

func TestPhotoUploadWithoutStorage(t *testing.T) {
	f := newFixture(t)
	dish := testutil.CreateDish(t, f.db, f.user, "tiramisu")
	_, err := NewPhotoService(nil, f.dishes).Upload(f.ctx, f.user, dish.ID, pngDataURL("photo"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
