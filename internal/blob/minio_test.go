package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectClient struct {
	objects map[string][]byte
	putErr  error
}

func newFakeObjectClient() *fakeObjectClient {
	return &fakeObjectClient{objects: make(map[string][]byte)}
}

func (f *fakeObjectClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[objectName] = data
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeObjectClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.objects[objectName])), nil
}

func (f *fakeObjectClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	delete(f.objects, objectName)
	return nil
}

func (f *fakeObjectClient) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	data, ok := f.objects[objectName]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	}
	return minio.ObjectInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeObjectClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return bucketName == "filevault", nil
}

func TestMinIOStoreHealthCheck(t *testing.T) {
	assert.NoError(t, newMinIOStore(newFakeObjectClient(), "filevault").HealthCheck(context.Background()))
	assert.Error(t, newMinIOStore(newFakeObjectClient(), "missing").HealthCheck(context.Background()))
}

func TestMinIOStoreRoundTrip(t *testing.T) {
	client := newFakeObjectClient()
	store := newMinIOStore(client, "filevault")
	ctx := context.Background()

	id, size, err := store.Put(ctx, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
	assert.Contains(t, client.objects, id)

	rc, err := store.Get(ctx, id)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, id))
	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMinIOStorePutError(t *testing.T) {
	client := newFakeObjectClient()
	client.putErr = errors.New("bucket unavailable")
	store := newMinIOStore(client, "filevault")

	_, _, err := store.Put(context.Background(), strings.NewReader("x"))
	require.Error(t, err)
	assert.Empty(t, client.objects)
}

func TestMinIOStoreRejectsForeignIdentifiers(t *testing.T) {
	store := newMinIOStore(newFakeObjectClient(), "filevault")

	ok, err := store.Exists(context.Background(), "../other-bucket/key")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidID)
}
