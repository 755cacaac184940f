package store

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/models"
)

// AppendMessage seals a new message into the log and evicts the oldest ones
// once the log exceeds its cap.
func (r *Room) AppendMessage(nm models.NewMessage) (*models.Message, error) {
	if nm.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	if strings.TrimSpace(nm.Body) == "" && nm.Media == nil {
		return nil, fmt.Errorf("%w: message is empty", models.ErrValidation)
	}

	id, now := r.store.nextMessageID()
	m := &models.Message{
		ID:       id,
		UserID:   nm.UserID,
		Username: nm.Username,
		ClientIP: nm.ClientIP,
		Body:     nm.Body,
		Media:    nm.Media,
		ReadBy:   []string{nm.UserID},
	}
	m.Stamp(now)

	blob, err := r.store.codec.Encode(m)
	if err != nil {
		return nil, err
	}
	r.messages = append(r.messages, slot{id: id, blob: blob})

	for len(r.messages) > r.store.maxMessages {
		delete(r.reactions, r.messages[0].id)
		r.messages[0] = slot{}
		r.messages = r.messages[1:]
	}
	return m, nil
}

// MessageCount returns the number of stored messages.
func (r *Room) MessageCount() int { return len(r.messages) }

// decode opens the message in slot i. Failures are logged here so callers
// can simply skip the message.
func (r *Room) decode(i int) (*models.Message, error) {
	m, err := r.store.codec.Decode(r.messages[i].blob)
	if err != nil {
		r.store.log.Warn("skipping undecodable message",
			zap.String("room_id", r.id),
			zap.String("message_id", r.messages[i].id),
			zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (r *Room) reseal(i int, m *models.Message) error {
	blob, err := r.store.codec.Encode(m)
	if err != nil {
		return err
	}
	r.messages[i].blob = blob
	return nil
}

// ListMessages returns every readable message annotated for userID. The
// annotations reflect the state before this call. With markAsRead the user
// is then added to each read set; the ids whose read set grew are returned.
// Needs Update when markAsRead is set.
func (r *Room) ListMessages(userID string, markAsRead bool) ([]models.MessageView, []string, error) {
	views := make([]models.MessageView, 0, len(r.messages))
	var changed []string
	for i := range r.messages {
		m, err := r.decode(i)
		if err != nil {
			continue
		}
		views = append(views, m.ViewFor(userID))

		if !markAsRead || userID == "" || !m.AddReader(userID) {
			continue
		}
		if err := r.reseal(i, m); err != nil {
			r.store.log.Error("failed to reseal message", zap.String("room_id", r.id), zap.String("message_id", m.ID), zap.Error(err))
			continue
		}
		changed = append(changed, m.ID)
	}
	return views, changed, nil
}

// MarkRead adds userID to the read set of each listed message. Unknown ids
// are ignored. It returns the ids whose read set actually grew.
func (r *Room) MarkRead(ids []string, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var changed []string
	for i := range r.messages {
		if _, ok := want[r.messages[i].id]; !ok {
			continue
		}
		m, err := r.decode(i)
		if err != nil {
			continue
		}
		if !m.AddReader(userID) {
			continue
		}
		if err := r.reseal(i, m); err != nil {
			return changed, err
		}
		changed = append(changed, m.ID)
	}
	return changed, nil
}

// DeleteMessage removes a message. Only its sender or a password holder may
// do so. Reactions on the message go with it.
func (r *Room) DeleteMessage(messageID, userID string, isPasswordHolder bool) (*models.Message, error) {
	for i := range r.messages {
		if r.messages[i].id != messageID {
			continue
		}
		m, err := r.decode(i)
		if err != nil {
			return nil, err
		}
		if m.UserID != userID && !isPasswordHolder {
			return nil, fmt.Errorf("%w: only the sender or a password holder may delete this message", models.ErrForbidden)
		}
		r.messages = append(r.messages[:i:i], r.messages[i+1:]...)
		delete(r.reactions, messageID)
		return m, nil
	}
	return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
}

// Clear empties the message log and the reactions. Files, origins,
// membership and the password stay.
func (r *Room) Clear() {
	r.messages = nil
	r.reactions = make(map[string]map[string][]string)
}

func (r *Room) hasMessage(id string) bool {
	for _, s := range r.messages {
		if s.id == id {
			return true
		}
	}
	return false
}

// AddReaction records userID under symbol for a message and returns the
// message's full reaction set. Reacting twice is a no-op.
func (r *Room) AddReaction(messageID, userID, symbol string) (models.ReactionSet, error) {
	if userID == "" || symbol == "" {
		return nil, fmt.Errorf("%w: user_id and reaction are required", models.ErrValidation)
	}
	if !r.hasMessage(messageID) {
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	bySymbol, ok := r.reactions[messageID]
	if !ok {
		bySymbol = make(map[string][]string)
		r.reactions[messageID] = bySymbol
	}
	users := bySymbol[symbol]
	found := false
	for _, u := range users {
		if u == userID {
			found = true
			break
		}
	}
	if !found {
		bySymbol[symbol] = append(users, userID)
	}
	return r.Reactions(messageID), nil
}

// Reactions returns a copy of the reaction set of a message.
func (r *Room) Reactions(messageID string) models.ReactionSet {
	out := make(models.ReactionSet, len(r.reactions[messageID]))
	for symbol, users := range r.reactions[messageID] {
		out[symbol] = append([]string(nil), users...)
	}
	return out
}

// Search returns the messages whose body contains query, ignoring case.
// Whitespace in query is significant.
func (r *Room) Search(query string) ([]models.Message, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", models.ErrValidation)
	}
	q := strings.ToLower(query)
	results := make([]models.Message, 0)
	for i := range r.messages {
		m, err := r.decode(i)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(m.Body), q) {
			results = append(results, *m)
		}
	}
	return results, nil
}
