package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD TOPIC
// ══════════════════════════════════════════════════════════════════════════════

// AddTopicCommand adds an expert topic to the session.
type AddTopicCommand struct {
	Title string
}

// Validate validates the command.
func (c AddTopicCommand) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return shared.ErrEmptyTitle
	}
	return nil
}

// AddTopicHandler handles AddTopicCommand.
type AddTopicHandler struct {
	deps Dependencies
}

// Handle executes the command and returns the created topic.
func (h *AddTopicHandler) Handle(ctx context.Context, cmd AddTopicCommand) (jigsaw.Topic, error) {
	if err := cmd.Validate(); err != nil {
		return jigsaw.Topic{}, fmt.Errorf("add_topic: %w", err)
	}

	var (
		topic     jigsaw.Topic
		sessionID string
	)
	err := h.deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		sessionID = s.ID()
		topic, _ = s.AddTopic(cmd.Title)
		return nil
	})
	if err != nil {
		return jigsaw.Topic{}, fmt.Errorf("add_topic: %w", err)
	}

	h.deps.publish(shared.NewTopicChangedEvent(shared.EventTopicAdded, sessionID, topic.ID, topic.Title))
	h.deps.Logger.Info("topic added", logger.SessionID(sessionID), logger.TopicID(topic.ID))

	return topic, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE TOPIC
// ══════════════════════════════════════════════════════════════════════════════

// UpdateTopicCommand merges Patch into an existing topic.
type UpdateTopicCommand struct {
	TopicID string
	Patch   jigsaw.TopicPatch
}

// Validate validates the command.
func (c UpdateTopicCommand) Validate() error {
	if c.TopicID == "" {
		return shared.NewDomainError("jigsaw", "UpdateTopic", shared.ErrInvalidID, "topic id is required")
	}
	return nil
}

// UpdateTopicHandler handles UpdateTopicCommand.
type UpdateTopicHandler struct {
	deps Dependencies
}

// Handle executes the command and returns the updated topic.
func (h *UpdateTopicHandler) Handle(ctx context.Context, cmd UpdateTopicCommand) (jigsaw.Topic, error) {
	if err := cmd.Validate(); err != nil {
		return jigsaw.Topic{}, fmt.Errorf("update_topic: %w", err)
	}

	var (
		topic     jigsaw.Topic
		sessionID string
	)
	err := h.deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		sessionID = s.ID()
		updated, ok := s.UpdateTopic(cmd.TopicID, cmd.Patch)
		if !ok {
			return shared.ErrTopicNotFound
		}
		topic = updated
		return nil
	})
	if err != nil {
		return jigsaw.Topic{}, fmt.Errorf("update_topic: %w", err)
	}

	h.deps.publish(shared.NewTopicChangedEvent(shared.EventTopicUpdated, sessionID, topic.ID, topic.Title))
	h.deps.Logger.Debug("topic updated", logger.SessionID(sessionID), logger.TopicID(topic.ID))

	return topic, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REMOVE TOPIC
// ══════════════════════════════════════════════════════════════════════════════

// RemoveTopicCommand removes a topic. Student assignments that pointed at it
// are left in place and read as unassigned.
type RemoveTopicCommand struct {
	TopicID string
}

// RemoveTopicHandler handles RemoveTopicCommand.
type RemoveTopicHandler struct {
	deps Dependencies
}

// Handle executes the command.
func (h *RemoveTopicHandler) Handle(ctx context.Context, cmd RemoveTopicCommand) error {
	var (
		removed   jigsaw.Topic
		sessionID string
	)
	err := h.deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		sessionID = s.ID()
		topic, ok := s.RemoveTopic(cmd.TopicID)
		if !ok {
			return shared.ErrTopicNotFound
		}
		removed = topic
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove_topic: %w", err)
	}

	h.deps.publish(shared.NewTopicChangedEvent(shared.EventTopicRemoved, sessionID, removed.ID, removed.Title))
	h.deps.Logger.Info("topic removed", logger.SessionID(sessionID), logger.TopicID(removed.ID))

	return nil
}
