package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPairIsOrderIndependent(t *testing.T) {
	a1, b1 := CanonicalPair("u-2", "u-1")
	a2, b2 := CanonicalPair("u-1", "u-2")
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.Equal(t, "u-1", a1)
}

func TestChatOther(t *testing.T) {
	c := Chat{ParticipantA: "a", ParticipantB: "b"}
	assert.Equal(t, "b", c.Other("a"))
	assert.Equal(t, "a", c.Other("b"))
	assert.True(t, c.HasParticipant("a"))
	assert.False(t, c.HasParticipant("z"))
	assert.False(t, c.HasParticipant(""))
}

func TestTombstoneClearsContent(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Message{
		ID:         "m1",
		Text:       "hello",
		Attachment: &Attachment{Kind: AttachmentImage, Key: "chat/images/1.png"},
		CreatedAt:  created,
	}
	m.Tombstone(created.Add(time.Minute))
	assert.True(t, m.IsDeleted)
	assert.Empty(t, m.Text)
	assert.Nil(t, m.Attachment)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, created, m.CreatedAt)
}

func TestAttachmentKindValid(t *testing.T) {
	assert.True(t, AttachmentAudio.Valid())
	assert.False(t, AttachmentKind("pdf").Valid())
}
