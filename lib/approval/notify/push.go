package approvalnotify

import (
	"context"
	"time"

	connectionhub "approvals-backend/lib/ws/hub/connection-hub"
	wsmodels "approvals-backend/models/ws"
)

// NewPushNotifier forwards events to the connected participants over websocket.
func NewPushNotifier(hub connectionhub.Provider) Provider {
	return &pushNotifier{
		hub: hub,
	}
}

type pushNotifier struct {
	hub connectionhub.Provider
}

func (n pushNotifier) ApprovalChanged(_ context.Context, event Event) error {
	for _, userID := range event.Recipients() {
		n.hub.SendMessage(wsmodels.ServerMessage{
			ToUserID: userID,
			Time:     event.OccurredAt.Format(time.RFC3339),
			Code:     wsmodels.ApprovalChangedCode,
			Msg:      event.EntityType.ToHuman() + " approval is " + event.ToStatus.ToHuman(),
			Data:     event,
		})
	}
	return nil
}
