package approvalnotify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"approvals-backend/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://"+s.Addr())
	require.Nil(t, err)
	defer client.Close()

	sub := client.Subscribe(ctx, "approvals")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.Nil(t, err)

	publisher := NewRedisPublisher(client, "approvals")
	event := Event{
		ID:         "ev-1",
		ApprovalID: "ap-1",
		Action:     models.HistorySubmitted,
		ActorID:    "R",
		FromStatus: models.ApprovalStatusDraft,
		ToStatus:   models.ApprovalStatusSubmitted,
	}
	require.Nil(t, publisher.ApprovalChanged(ctx, event))

	select {
	case msg := <-sub.Channel():
		received := Event{}
		require.Nil(t, json.Unmarshal([]byte(msg.Payload), &received))
		require.Equal(t, "ap-1", received.ApprovalID)
		require.Equal(t, models.ApprovalStatusSubmitted, received.ToStatus)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}

	recent, err := client.LRange(ctx, "approvals:recent", 0, -1).Result()
	require.Nil(t, err)
	require.Len(t, recent, 1)

	t.Run(`blank channel falls back to the default`, func(t *testing.T) {
		require.Nil(t, NewRedisPublisher(client, "  ").ApprovalChanged(ctx, event))
		recent, err := client.LRange(ctx, DefaultChannel+":recent", 0, -1).Result()
		require.Nil(t, err)
		require.Len(t, recent, 1)
	})
	t.Run(`unreachable redis`, func(t *testing.T) {
		_, err := NewRedisClient(ctx, "redis://127.0.0.1:1")
		require.Error(t, err)
		_, err = NewRedisClient(ctx, "not a url")
		require.Error(t, err)
	})
}
