package dialogue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/amirulm/aidlog/internal/repository/mocks"
)

func confirmableSession(staged activity.Record) *Session {
	return &Session{
		ChatID:  testChatID,
		OwnerID: testSenderID,
		Mode:    ModeCreate,
		Step:    StepConfirm,
		Draft:   staged,
		Staged:  &staged,

		LastActivity: testClock,
	}
}

func TestCommitCreateAssignsIdentityAndAnnounces(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	sender := &fakeSender{}
	e := newTestEngine(repo, sender, nil)
	ctx := context.Background()

	staged := activity.Record{
		Title:      "Agihan Mushaf",
		Type:       activity.TypeDistribution,
		OccurredAt: testClock,
		Attachment: &activity.Attachment{Kind: activity.AttachmentPhoto, FileID: "photo-1"},
	}
	require.NoError(t, e.sessions.Begin(confirmableSession(staged)))

	var inserted *activity.Record
	repo.On("Insert", mock.Anything, mock.AnythingOfType("*activity.Record")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(*activity.Record)
		}).
		Return(nil)

	e.HandleEvent(ctx, callbackEv("confirm"))

	require.NotNil(t, inserted)
	assert.Len(t, inserted.ID, 36)
	assert.Equal(t, testSenderID, inserted.ReporterID)
	assert.Equal(t, testClock, inserted.CreatedAt)
	assert.Equal(t, testClock, inserted.ModifiedAt)

	assert.Nil(t, e.sessions.Get(testChatID))
	assert.Contains(t, sender.lastTo(testChatID), "Activity saved. ID: "+inserted.ID[:8])

	// The announcement carries the photo.
	channel := sender.sentTo(testChannelID)
	require.Len(t, channel, 1)
	assert.Equal(t, "photo", channel[0].kind)
	assert.Equal(t, "photo-1", channel[0].fileID)
	assert.Contains(t, channel[0].text, "Agihan Mushaf")
}

func TestCommitStorageFailureKeepsSessionForRetry(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	sender := &fakeSender{}
	e := newTestEngine(repo, sender, nil)
	ctx := context.Background()

	staged := activity.Record{Title: "Banjir relief", Type: activity.TypeUpdate, OccurredAt: testClock}
	sess := confirmableSession(staged)
	require.NoError(t, e.sessions.Begin(sess))

	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()

	e.HandleEvent(ctx, callbackEv("confirm"))

	// Nothing stored, nothing announced, session still awaiting
	// confirmation.
	require.Same(t, sess, e.sessions.Get(testChatID))
	assert.Equal(t, StepConfirm, sess.Step)
	require.NotNil(t, sess.Staged)
	assert.Contains(t, sender.lastTo(testChatID), "NOT stored")
	assert.Empty(t, sender.sentTo(testChannelID))

	e.HandleEvent(ctx, callbackEv("confirm"))

	assert.Nil(t, e.sessions.Get(testChatID))
	assert.Contains(t, sender.lastTo(testChatID), "Activity saved")
	assert.Len(t, sender.sentTo(testChannelID), 1)
	repo.AssertNumberOfCalls(t, "Insert", 2)
}

func TestCommitEditUpdatesInPlace(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	sender := &fakeSender{}
	e := newTestEngine(repo, sender, nil)
	ctx := context.Background()

	staged := activity.Record{
		ID:         "rec-1",
		Title:      "Kelas Iqra",
		Type:       activity.TypeClass,
		OccurredAt: testClock.AddDate(0, 0, -1),
		ReporterID: 7,
	}
	sess := confirmableSession(staged)
	sess.Mode = ModeEdit
	require.NoError(t, e.sessions.Begin(sess))

	var updated *activity.Record
	repo.On("Update", mock.Anything, mock.AnythingOfType("*activity.Record")).
		Run(func(args mock.Arguments) {
			updated = args.Get(1).(*activity.Record)
		}).
		Return(nil)

	e.HandleEvent(ctx, callbackEv("confirm"))

	require.NotNil(t, updated)
	assert.Equal(t, "rec-1", updated.ID)
	assert.Equal(t, int64(7), updated.ReporterID)
	assert.Equal(t, testClock, updated.ModifiedAt)
	assert.Contains(t, sender.lastTo(testChatID), "Activity updated")
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestCommitTextConfirmAccepted(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	sender := &fakeSender{}
	e := newTestEngine(repo, sender, nil)

	staged := activity.Record{Title: "Agihan", Type: activity.TypeOther, OccurredAt: testClock}
	require.NoError(t, e.sessions.Begin(confirmableSession(staged)))
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	e.HandleEvent(context.Background(), textEv("ya"))

	assert.Nil(t, e.sessions.Get(testChatID))
	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestCommitUploadsAttachmentBestEffort(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	sender := &fakeSender{}
	up := &fakeUploader{url: "https://cdn.example.org/obj.jpg"}
	e := NewEngine(repo, sender, &fakeGeocoder{}, up,
		NewAllowlist(nil), testChannelID, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.now = func() time.Time { return testClock }

	staged := activity.Record{
		Title:      "Agihan",
		Type:       activity.TypeDistribution,
		OccurredAt: testClock,
		Attachment: &activity.Attachment{Kind: activity.AttachmentPhoto, FileID: "photo-9"},
	}
	require.NoError(t, e.sessions.Begin(confirmableSession(staged)))

	var inserted *activity.Record
	repo.On("Insert", mock.Anything, mock.AnythingOfType("*activity.Record")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(*activity.Record)
		}).
		Return(nil)

	e.HandleEvent(context.Background(), callbackEv("confirm"))

	require.NotNil(t, inserted)
	require.NotNil(t, inserted.Attachment)
	assert.Equal(t, "https://cdn.example.org/obj.jpg", inserted.Attachment.PublicURL)
	require.Len(t, up.objects, 1)
	assert.Equal(t, inserted.ID+".jpg", up.objects[0])
	assert.Equal(t, "image/jpeg", up.contentTypes[0])
}

func TestCommitUploadFailureDoesNotBlock(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	sender := &fakeSender{}
	up := &fakeUploader{err: errors.New("bucket gone")}
	e := NewEngine(repo, sender, &fakeGeocoder{}, up,
		NewAllowlist(nil), testChannelID, slog.New(slog.NewTextHandler(io.Discard, nil)))

	staged := activity.Record{
		Title:      "Agihan",
		Type:       activity.TypeDistribution,
		OccurredAt: testClock,
		Attachment: &activity.Attachment{Kind: activity.AttachmentPhoto, FileID: "photo-9"},
	}
	require.NoError(t, e.sessions.Begin(confirmableSession(staged)))

	var inserted *activity.Record
	repo.On("Insert", mock.Anything, mock.AnythingOfType("*activity.Record")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(*activity.Record)
		}).
		Return(nil)

	e.HandleEvent(context.Background(), callbackEv("confirm"))

	require.NotNil(t, inserted)
	assert.Empty(t, inserted.Attachment.PublicURL)
	assert.Nil(t, e.sessions.Get(testChatID))
}

func TestAnnounceFailureDoesNotRollBack(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	sender := &fakeSender{failTo: testChannelID}
	e := newTestEngine(repo, sender, nil)

	staged := activity.Record{Title: "Agihan", Type: activity.TypeOther, OccurredAt: testClock}
	require.NoError(t, e.sessions.Begin(confirmableSession(staged)))
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	e.HandleEvent(context.Background(), callbackEv("confirm"))

	// The record stays committed and the user still gets the receipt.
	assert.Nil(t, e.sessions.Get(testChatID))
	assert.Contains(t, sender.lastTo(testChatID), "Activity saved")
	repo.AssertNumberOfCalls(t, "Insert", 1)
}
