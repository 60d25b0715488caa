package services

import (
	"time"

	"livechat/internal/models"

	"github.com/samber/lo"
)

// PresenceService shapes registry changes into presence events. It owns no state.
type PresenceService struct {
	now func() time.Time
}

func NewPresenceService() *PresenceService {
	return &PresenceService{now: time.Now}
}

func (s *PresenceService) Joined(user models.UserRecord) models.Outbound {
	return models.Outbound{Event: models.EventUserJoined, Data: s.payload(user)}
}

func (s *PresenceService) Left(user models.UserRecord) models.Outbound {
	return models.Outbound{Event: models.EventUserLeft, Data: s.payload(user)}
}

// Snapshot lists the users currently online, stamped with the time each one joined.
func (s *PresenceService) Snapshot(users []models.UserRecord) models.Outbound {
	return models.CurrentUsers(lo.Map(users, func(u models.UserRecord, _ int) models.PresencePayload {
		return models.PresencePayload{Username: u.Username, ID: u.ID, Timestamp: u.JoinedAt}
	}))
}

func (s *PresenceService) payload(user models.UserRecord) models.PresencePayload {
	return models.PresencePayload{
		Username:  user.Username,
		ID:        user.ID,
		Timestamp: s.now(),
	}
}
