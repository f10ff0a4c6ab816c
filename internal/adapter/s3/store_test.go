package s3

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeAPI struct {
	putFn  func(ctx context.Context, in *awss3.PutObjectInput) (*awss3.PutObjectOutput, error)
	headFn func(ctx context.Context, in *awss3.HeadObjectInput) (*awss3.HeadObjectOutput, error)

	puts  []awss3.PutObjectInput
	heads []awss3.HeadObjectInput
}

func (f *fakeAPI) PutObject(ctx context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	f.puts = append(f.puts, *in)
	if f.putFn == nil {
		return &awss3.PutObjectOutput{}, nil
	}
	return f.putFn(ctx, in)
}

func (f *fakeAPI) HeadObject(ctx context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	f.heads = append(f.heads, *in)
	if f.headFn == nil {
		return &awss3.HeadObjectOutput{}, nil
	}
	return f.headFn(ctx, in)
}

func newTestStore(api API, region string) *Store {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(api, "vocab-media", region, log)
}

func TestStore_Upload_StreamsBody(t *testing.T) {
	t.Parallel()

	var received string
	api := &fakeAPI{
		putFn: func(_ context.Context, in *awss3.PutObjectInput) (*awss3.PutObjectOutput, error) {
			b, err := io.ReadAll(in.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			received = string(b)
			return &awss3.PutObjectOutput{}, nil
		},
	}
	store := newTestStore(api, "us-east-1")

	url, err := store.Upload(context.Background(), "vocabs/en/house/images/large2x.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if received != "jpeg-bytes" {
		t.Errorf("uploaded body = %q", received)
	}
	if url != "https://vocab-media.s3.amazonaws.com/vocabs/en/house/images/large2x.jpg" {
		t.Errorf("url = %q", url)
	}

	put := api.puts[0]
	if *put.Bucket != "vocab-media" {
		t.Errorf("bucket = %q", *put.Bucket)
	}
	if *put.ContentType != "image/jpeg" {
		t.Errorf("content type = %q", *put.ContentType)
	}
}

func TestStore_Upload_Error(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("slow down")
	api := &fakeAPI{
		putFn: func(_ context.Context, _ *awss3.PutObjectInput) (*awss3.PutObjectOutput, error) {
			return nil, wantErr
		},
	}
	store := newTestStore(api, "us-east-1")

	_, err := store.Upload(context.Background(), "k", "audio/mpeg", strings.NewReader("x"))
	if !errors.Is(err, wantErr) {
		t.Errorf("Upload error = %v, want wrapped %v", err, wantErr)
	}
}

func TestStore_Exists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headErr error
		want    bool
		wantErr bool
	}{
		{name: "present", headErr: nil, want: true},
		{name: "absent", headErr: &types.NotFound{}, want: false},
		{name: "failure", headErr: errors.New("access denied"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := &fakeAPI{
				headFn: func(_ context.Context, _ *awss3.HeadObjectInput) (*awss3.HeadObjectOutput, error) {
					if tt.headErr != nil {
						return nil, tt.headErr
					}
					return &awss3.HeadObjectOutput{}, nil
				},
			}
			store := newTestStore(api, "us-east-1")

			got, err := store.Exists(context.Background(), "vocabs/es/casa/audio/pronunciation.mp3")
			if tt.wantErr {
				if err == nil {
					t.Fatal("Exists: expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Exists: %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_URL_RegionAware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		region string
		want   string
	}{
		{region: "us-east-1", want: "https://vocab-media.s3.amazonaws.com/k"},
		{region: "", want: "https://vocab-media.s3.amazonaws.com/k"},
		{region: "eu-central-1", want: "https://vocab-media.s3.eu-central-1.amazonaws.com/k"},
	}

	for _, tt := range tests {
		store := newTestStore(&fakeAPI{}, tt.region)
		if got := store.URL("k"); got != tt.want {
			t.Errorf("URL(%q region) = %q, want %q", tt.region, got, tt.want)
		}
	}
}
