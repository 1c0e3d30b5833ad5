package s3

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegrabber/codegrabber/backend"
)

type fakeObjects struct {
	put     *s3.PutObjectInput
	putErr  error
	deleted *s3.DeleteObjectInput
	delErr  error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = in
	return &s3.DeleteObjectOutput{}, f.delErr
}

type fakePresign struct {
	key     string
	expires time.Duration
}

func (f *fakePresign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.key = aws.ToString(in.Key)
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example.com/" + f.key + "?X-Amz-Signature=abc"}, nil
}

func TestCreateFile(t *testing.T) {
	objs := &fakeObjects{}
	s := NewWithAPI(objs, &fakePresign{}, Config{Bucket: "media"})

	file, err := s.CreateFile(context.Background(), "f1", backend.Upload{
		Name:        "diagram.png",
		ContentType: "image/png",
		Size:        3,
		Body:        strings.NewReader("png"),
	}, backend.OwnerPermissions("u1"))
	require.NoError(t, err)

	assert.Equal(t, "f1", file.ID)
	assert.Equal(t, "media", aws.ToString(objs.put.Bucket))
	assert.Equal(t, "assets/f1", aws.ToString(objs.put.Key))
	assert.Equal(t, "image/png", aws.ToString(objs.put.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(objs.put.ContentLength))
	assert.Equal(t, `inline; filename=diagram.png`, aws.ToString(objs.put.ContentDisposition))
}

func TestCreateFileError(t *testing.T) {
	s := NewWithAPI(&fakeObjects{putErr: errors.New("denied")}, &fakePresign{}, Config{Bucket: "media"})
	_, err := s.CreateFile(context.Background(), "f1", backend.Upload{Body: strings.NewReader("x")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: put object")
}

func TestDeleteFile(t *testing.T) {
	objs := &fakeObjects{}
	s := NewWithAPI(objs, &fakePresign{}, Config{Bucket: "media"})
	require.NoError(t, s.DeleteFile(context.Background(), "f1"))
	assert.Equal(t, "assets/f1", aws.ToString(objs.deleted.Key))
}

func TestFileURLPresigned(t *testing.T) {
	p := &fakePresign{}
	s := NewWithAPI(&fakeObjects{}, p, Config{Bucket: "media"})

	u, err := s.FileURL(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example.com/assets/f1?X-Amz-Signature=abc", u)
	assert.Equal(t, time.Hour, p.expires)
}

func TestFileURLPublic(t *testing.T) {
	p := &fakePresign{}
	s := NewWithAPI(&fakeObjects{}, p, Config{Bucket: "media", PublicURL: "https://cdn.example.com/"})

	u, err := s.FileURL(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/assets/f1", u)
	assert.Empty(t, p.key)
}
