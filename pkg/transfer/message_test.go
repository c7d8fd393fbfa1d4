package transfer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressMessage(t *testing.T) {
	job := Upload{LocalPath: "/tmp/cat.png", Container: "media", Key: "photos/cat.png"}

	assert.Equal(t, "Uploading cat.png to media/photos/cat.png (0%)", ProgressMessage(job, Progress{}))
	assert.Equal(t, "Uploading cat.png to media/photos/cat.png (42%, 2.0 MB/s)",
		ProgressMessage(job, Progress{Percent: 42, BytesPerSecond: 2_000_000}))
}

func TestCompletionMessage(t *testing.T) {
	dl := Download{Container: "media", Key: "a/b.mp3", LocalPath: "/out/a/b.mp3"}
	assert.Equal(t, "Downloaded b.mp3 to /out/a/b.mp3", CompletionMessage(dl, nil))
	assert.Equal(t, "Failed to download b.mp3: boom", CompletionMessage(dl, errors.New("boom")))

	del := Delete{Container: "media", Key: "a/b.mp3"}
	assert.Equal(t, "Deleted a/b.mp3", CompletionMessage(del, nil))

	cp := Copy{SourceContainer: "src", SourceKey: "x.txt", TargetContainer: "dst", TargetKey: "x.txt"}
	assert.Equal(t, "Copying x.txt to dst/x.txt (100%)", ProgressMessage(cp, Progress{Percent: 100}))
}
