package listbot

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/lmittmann/tint"
)

// Notification type tags pushed by the upstream events websocket.
const (
	NotificationShiftCompleted               = "SHIFT_COMPLETED"
	NotificationShiftsMissed                 = "SHIFTS_MISSED"
	NotificationShiftsCreated                = "SHIFTS_CREATED"
	NotificationSubmissionDenied             = "SUBMISSION_DENIED"
	NotificationSubmissionAccept             = "SUBMISSION_ACCEPTED"
	NotificationSubmissionUnderConsideration = "SUBMISSION_UNDER_CONSIDERATION"
)

// NotificationFrame is one message pushed over the events websocket.
// Data is shaped per NotificationType and decoded by the bound handler.
type NotificationFrame struct {
	NotificationType string          `json:"notification_type"`
	Data             json.RawMessage `json:"data"`
}

// NotificationHandler is the unit of logic bound to one notification
// type. Handlers receive the bot as their only collaborator context
// and the raw frame payload; they decode it themselves.
type NotificationHandler struct {
	NotificationType string
	Handle           func(ctx context.Context, data json.RawMessage) error
}

// notificationHandlers enumerates every handler unit. The registry is
// built from this once at startup.
func (b *Bot) notificationHandlers() []NotificationHandler {
	return []NotificationHandler{
		{NotificationShiftCompleted, b.handleShiftCompleted},
		{NotificationShiftsMissed, b.handleShiftsMissed},
		{NotificationShiftsCreated, b.handleShiftsCreated},
		{NotificationSubmissionDenied, b.handleSubmissionDenied},
		{NotificationSubmissionAccept, b.handleSubmissionAccepted},
		{NotificationSubmissionUnderConsideration, b.handleSubmissionUnderConsideration},
	}
}

// buildHandlerRegistry maps notification types to their handlers.
// Duplicate types are a configuration error: with a plain map the last
// write would silently win.
func buildHandlerRegistry(handlers []NotificationHandler) (
	map[string]NotificationHandler,
	error,
) {
	registry := make(map[string]NotificationHandler, len(handlers))
	for _, h := range handlers {
		if h.NotificationType == "" {
			return nil, fmt.Errorf("handler with empty notification type")
		}
		if h.Handle == nil {
			return nil, fmt.Errorf(
				"handler %s has no handle func",
				h.NotificationType,
			)
		}
		if _, exists := registry[h.NotificationType]; exists {
			return nil, fmt.Errorf(
				"duplicate handler for notification type %s",
				h.NotificationType,
			)
		}
		registry[h.NotificationType] = h
	}
	return registry, nil
}

// dispatchNotification routes one raw websocket frame to its handler.
// Malformed or unroutable frames are dropped with a warning; handler
// failures (including panics) are logged and contained, so one bad
// frame never takes down the connection or affects later frames.
func (b *Bot) dispatchNotification(ctx context.Context, raw []byte) {
	var frame NotificationFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		b.logger.WarnContext(
			ctx,
			"dropping malformed notification frame",
			tint.Err(err),
		)
		return
	}
	if frame.NotificationType == "" {
		b.logger.WarnContext(ctx, "dropping frame with no notification type")
		return
	}
	handler, ok := b.handlers[frame.NotificationType]
	if !ok {
		b.logger.WarnContext(
			ctx,
			"no handler for notification type",
			"notification_type", frame.NotificationType,
		)
		return
	}

	b.logger.InfoContext(
		ctx,
		"received notification",
		"notification_type", frame.NotificationType,
	)

	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(
				ctx,
				"notification handler panicked",
				"notification_type", frame.NotificationType,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	if err := handler.Handle(ctx, frame.Data); err != nil {
		b.logger.ErrorContext(
			ctx,
			"notification handler failed",
			tint.Err(err),
			"notification_type", frame.NotificationType,
		)
	}
}

// WebsocketShift is the shift payload shape used by shift notification
// frames. Unlike AredlShift, the owner arrives as a bare user ID.
type WebsocketShift struct {
	UserID         string    `json:"user_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	CompletedCount int       `json:"completed_count"`
	TargetCount    int       `json:"target_count"`
}

// ShiftsMissedPayload is the SHIFTS_MISSED batch payload.
type ShiftsMissedPayload struct {
	Shifts []WebsocketShift `json:"aredl"`
}

// SubmissionPayload is the payload shape shared by the submission
// notification frames. CompletionTime (milliseconds) is only present
// for platformer submissions.
type SubmissionPayload struct {
	ID                   string `json:"id"`
	LevelID              string `json:"level_id"`
	SubmittedBy          string `json:"submitted_by"`
	ReviewerID           string `json:"reviewer_id"`
	Mobile               bool   `json:"mobile"`
	LdmID                int64  `json:"ldm_id"`
	VideoURL             string `json:"video_url"`
	RawURL               string `json:"raw_url"`
	ModMenu              string `json:"mod_menu"`
	UserNotes            string `json:"user_notes"`
	ReviewerNotes        string `json:"reviewer_notes"`
	PrivateReviewerNotes string `json:"private_reviewer_notes"`
	CompletionTime       *int64 `json:"completion_time"`
}

// list returns which demon list the submission belongs to. Platformer
// submissions are the only ones carrying a completion time.
func (s SubmissionPayload) list() ListKind {
	if s.CompletionTime != nil {
		return ListPlatformer
	}
	return ListClassic
}
