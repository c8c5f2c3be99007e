package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordingKey(t *testing.T) {
	assert.Equal(t, "recordings/12/0b9c2f4e.mp4", RecordingKey(12, "0b9c2f4e"))
	assert.Equal(t, "recordings/12/x.mp4", RecordingKey(12, "../../x"))
}

func TestPresignExpire_Default(t *testing.T) {
	s := &S3{cfg: S3Config{}}
	assert.Equal(t, 15*time.Minute, s.PresignExpire())
	s.cfg.PresignExpireMinutes = 5
	assert.Equal(t, 5*time.Minute, s.PresignExpire())
}
