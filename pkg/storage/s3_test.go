package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordingKey(t *testing.T) {
	assert.Equal(t, "recordings/c1/s1.mp4", RecordingKey("c1", "s1"))
	assert.True(t, IsRecordingKey(RecordingKey("c1", "s1")))
	assert.False(t, IsRecordingKey("ads/c1/banner.png"))
}

func TestRecordingLocation(t *testing.T) {
	s := &S3{cfg: S3Config{Region: "eu-west-1", RecordingsBucket: "rec"}}
	url, key := s.RecordingLocation("c1", "s1")
	assert.Equal(t, "recordings/c1/s1.mp4", key)
	assert.Equal(t, "https://rec.s3.eu-west-1.amazonaws.com/recordings/c1/s1.mp4", url)
}

func TestPresignExpireDefault(t *testing.T) {
	assert.Equal(t, 15.0, (&S3{}).PresignExpire().Minutes())
	assert.Equal(t, 5.0, (&S3{cfg: S3Config{PresignExpireMinutes: 5}}).PresignExpire().Minutes())
}
