package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	putIn     *s3.PutObjectInput
	putErr    error
	getBody   []byte
	getErr    error
	headErr   error
	createErr error

	heads   atomic.Int32
	creates atomic.Int32
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putIn = in
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeS3) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.getBody))}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.heads.Add(1)
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(_ context.Context, _ *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.creates.Add(1)
	return &s3.CreateBucketOutput{}, f.createErr
}

type fakePresign struct {
	err     error
	expires time.Duration
}

func (f *fakePresign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://s3/" + *in.Bucket + "/" + *in.Key}, nil
}

func TestS3Store_PutObject(t *testing.T) {
	f := &fakeS3{}
	s := newS3Store(f, &fakePresign{})

	require.NoError(t, s.PutObject(context.Background(), "candidates", "c1/d1.pdf", []byte("abc"), "application/pdf"))
	assert.Equal(t, "candidates", *f.putIn.Bucket)
	assert.Equal(t, "c1/d1.pdf", *f.putIn.Key)
	assert.Equal(t, int64(3), *f.putIn.ContentLength)
	assert.Equal(t, "application/pdf", *f.putIn.ContentType)

	f.putErr = errors.New("network")
	err := s.PutObject(context.Background(), "candidates", "k", nil, "")
	require.ErrorIs(t, err, common.ErrStorage)
}

func TestS3Store_GetObject(t *testing.T) {
	f := &fakeS3{getBody: []byte("payload")}
	s := newS3Store(f, &fakePresign{})

	got, err := s.GetObject(context.Background(), "b", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	f.getErr = &types.NoSuchKey{}
	_, err = s.GetObject(context.Background(), "b", "k")
	require.ErrorIs(t, err, common.ErrNotFound)

	f.getErr = errors.New("down")
	_, err = s.GetObject(context.Background(), "b", "k")
	require.ErrorIs(t, err, common.ErrStorage)
}

func TestS3Store_EnsureBucket_Existing(t *testing.T) {
	f := &fakeS3{}
	s := newS3Store(f, &fakePresign{})

	require.NoError(t, s.EnsureBucket(context.Background(), "b"))
	require.NoError(t, s.EnsureBucket(context.Background(), "b"))
	assert.Equal(t, int32(1), f.heads.Load())
	assert.Equal(t, int32(0), f.creates.Load())
}

func TestS3Store_EnsureBucket_CreateRaces(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		wantErr   bool
	}{
		{"created", nil, false},
		{"owned by you", &types.BucketAlreadyOwnedByYou{}, false},
		{"already exists", &types.BucketAlreadyExists{}, false},
		{"failure", errors.New("denied"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeS3{headErr: &types.NotFound{}, createErr: tt.createErr}
			s := newS3Store(f, &fakePresign{})

			err := s.EnsureBucket(context.Background(), "b")
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrStorage)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestS3Store_EnsureBucket_Concurrent(t *testing.T) {
	f := &fakeS3{headErr: &types.NotFound{}}
	s := newS3Store(f, &fakePresign{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.EnsureBucket(context.Background(), "b"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.creates.Load())
}

func TestS3Store_PresignGet(t *testing.T) {
	p := &fakePresign{}
	s := newS3Store(&fakeS3{}, p)

	url, err := s.PresignGet(context.Background(), "b", "c1/d1.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/b/c1/d1.pdf", url)
	assert.Equal(t, 15*time.Minute, p.expires)

	p.err = errors.New("sign")
	_, err = s.PresignGet(context.Background(), "b", "k", time.Minute)
	require.ErrorIs(t, err, common.ErrStorage)
}

func TestNewS3Store_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		newS3PresignClient = origPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }

	s, err := NewS3Store(context.Background(), S3Options{
		Region: "us-east-1", AccessKey: "u", SecretKey: "p", BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), S3Options{})
	require.Error(t, err)
}
