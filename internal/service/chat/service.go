package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	chatmodel "github.com/civibot-ba/backend/internal/model/chat"
	"github.com/civibot-ba/backend/internal/service/assistant"
)

const (
	// BotName is the author attached to every synthetic message.
	BotName = "CiviBot"

	// DefaultUserName labels citizen messages when the UI sends no name.
	DefaultUserName = "Ciudadano"

	commandMarker = "/"
	greetCommand  = "/greet"
	faqPrefix     = "/faq_gcba"

	placeholderText     = "⏳ Buscando información..."
	emptyReplyText      = "Lo siento, no tengo respuesta para eso."
	noResultsText       = "No encontré información para esa consulta. Probá con otras palabras o elegí otra categoría."
	connectionErrorText = "Error: No se pudo conectar con CiviBot."
)

var ErrSessionNotFound = errors.New("session not found")

// Assistant is the conversational backend non-intercepted input is
// forwarded to.
type Assistant interface {
	Converse(ctx context.Context, senderID, message string) ([]assistant.Reply, error)
}

// Service coordinates a citizen chat session: it owns the canonical merged
// message list, routes each outgoing input through the command interceptor
// before the remote assistant, and fans message snapshots out to stream
// subscribers. It is the single writer of the message list; collaborators
// (interceptor, booking workflow) hand messages back instead of mutating.
type Service struct {
	assistant   Assistant
	interceptor *Interceptor

	mu          sync.RWMutex
	sessions    map[string]chatmodel.Session
	messages    map[string][]chatmodel.Message
	greeted     map[string]bool
	subscribers map[string]map[int]chan []chatmodel.Message
	nextSubID   int
}

// NewService wires the session coordinator to its collaborators.
func NewService(backend Assistant, catalog ProcedureCatalog) *Service {
	return &Service{
		assistant:   backend,
		interceptor: NewInterceptor(catalog),
		sessions:    make(map[string]chatmodel.Session),
		messages:    make(map[string][]chatmodel.Message),
		greeted:     make(map[string]bool),
		subscribers: make(map[string]map[int]chan []chatmodel.Message),
	}
}

// CreateSession provisions an anonymous citizen session.
func (s *Service) CreateSession(_ context.Context, userName string) (chatmodel.Session, error) {
	if strings.TrimSpace(userName) == "" {
		userName = DefaultUserName
	}

	session := chatmodel.Session{
		ID:        uuid.NewString(),
		UserName:  userName,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chatmodel.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chatmodel.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chatmodel.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Messages returns a snapshot of the merged, ordered message list.
func (s *Service) Messages(_ context.Context, sessionID string) ([]chatmodel.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chatmodel.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Send routes one outgoing user action. Local commands are answered by the
// interceptor without any network call; everything else goes to the
// conversational backend. Assistant failures become bot messages, never
// errors: the only error Send returns is an unknown session.
func (s *Service) Send(ctx context.Context, sessionID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if msgs, ok := s.interceptor.Intercept(ctx, content); ok {
		s.append(sessionID, msgs, appendOpts{})
		return nil
	}

	// The echo shows the citizen's text immediately, before the network
	// round-trip. Command payloads stay invisible.
	correlationID := uuid.NewString()
	if !strings.HasPrefix(content, commandMarker) {
		echo := chatmodel.Message{
			ID:        correlationID,
			Content:   content,
			Author:    chatmodel.Author{Name: session.UserName},
			CreatedAt: chatmodel.Now(),
		}
		s.append(sessionID, []chatmodel.Message{echo}, appendOpts{})
	}

	isFAQ := strings.HasPrefix(content, faqPrefix)
	if isFAQ {
		s.append(sessionID, []chatmodel.Message{botMessage(placeholderText)}, appendOpts{})
	}

	replies, err := s.assistant.Converse(ctx, senderID(sessionID), content)
	if err != nil {
		log.Printf("[chat] assistant call failed for session=%s: %v", sessionID, err)
		s.append(sessionID, []chatmodel.Message{botMessage(connectionErrorText)}, appendOpts{
			dropPlaceholder: true,
			dedupError:      true,
		})
		return nil
	}

	if len(replies) == 0 {
		s.append(sessionID, []chatmodel.Message{botMessage(noResultsText)}, appendOpts{
			dropPlaceholder: isFAQ,
		})
		return nil
	}

	// Replies in one burst get strictly increasing timestamps so the merged
	// order never falls back to the lexicographic ID tie-break.
	base := time.Now().UTC()
	botMsgs := make([]chatmodel.Message, 0, len(replies))
	for i, reply := range replies {
		text := reply.Text
		if text == "" {
			text = emptyReplyText
		}
		botMsgs = append(botMsgs, chatmodel.Message{
			ID:        fmt.Sprintf("%s-bot-%d", correlationID, i),
			Content:   text,
			Author:    chatmodel.Author{Name: BotName},
			CreatedAt: chatmodel.Timestamp{Time: base.Add(time.Duration(i))},
			Buttons:   reply.Buttons,
		})
	}
	s.append(sessionID, botMsgs, appendOpts{dropPlaceholder: isFAQ})
	return nil
}

// EnsureGreeting fires the synthetic /greet at most once per session
// identity, no matter how many times the UI attaches. The flag is set
// before dispatch so a remount during a slow greeting cannot double it.
func (s *Service) EnsureGreeting(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if s.greeted[sessionID] {
		s.mu.Unlock()
		return nil
	}
	s.greeted[sessionID] = true
	s.mu.Unlock()

	return s.Send(ctx, sessionID, greetCommand)
}

// PushBot injects a synthetic bot message into the session stream. The
// booking workflow reports through here, so its output is indistinguishable
// from a conversational reply.
func (s *Service) PushBot(sessionID, content string) {
	s.append(sessionID, []chatmodel.Message{botMessage(content)}, appendOpts{})
}

// Subscribe registers a listener for merged-list snapshots. The returned
// cancel must be called when the stream detaches. The current snapshot is
// delivered first. The channel is never closed: fan-out sends happen
// outside the lock, so cancel only unregisters and leaves the channel to
// the garbage collector. Consumers stop on their own context.
func (s *Service) Subscribe(sessionID string) (<-chan []chatmodel.Message, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.messages[sessionID]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}

	ch := make(chan []chatmodel.Message, 8)
	id := s.nextSubID
	s.nextSubID++

	subs := s.subscribers[sessionID]
	if subs == nil {
		subs = make(map[int]chan []chatmodel.Message)
		s.subscribers[sessionID] = subs
	}
	subs[id] = ch

	snapshot := make([]chatmodel.Message, len(current))
	copy(snapshot, current)
	ch <- snapshot

	cancel := func() {
		s.mu.Lock()
		if subs, ok := s.subscribers[sessionID]; ok {
			delete(subs, id)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

type appendOpts struct {
	dropPlaceholder bool
	dedupError      bool
}

// append rebuilds the canonical list by re-merging the latest snapshot with
// the incoming source messages, then notifies subscribers. dropPlaceholder
// strips a pending "searching" marker first; dedupError suppresses a
// connection-error message that would immediately repeat the previous one.
func (s *Service) append(sessionID string, incoming []chatmodel.Message, opts appendOpts) {
	s.mu.Lock()
	current, ok := s.messages[sessionID]
	if !ok {
		s.mu.Unlock()
		return
	}

	if opts.dropPlaceholder {
		current = withoutPlaceholder(current)
	}

	if opts.dedupError && endsWithConnectionError(current) &&
		len(incoming) == 1 && incoming[0].Content == connectionErrorText {
		incoming = nil
	}

	next := chatmodel.Merge(current, incoming)
	s.messages[sessionID] = next

	notify := make([]chan []chatmodel.Message, 0, len(s.subscribers[sessionID]))
	for _, ch := range s.subscribers[sessionID] {
		notify = append(notify, ch)
	}
	s.mu.Unlock()

	for _, ch := range notify {
		snapshot := make([]chatmodel.Message, len(next))
		copy(snapshot, next)
		select {
		case ch <- snapshot:
		default:
			// Slow consumer; it will catch up with the next snapshot.
		}
	}
}

func withoutPlaceholder(messages []chatmodel.Message) []chatmodel.Message {
	filtered := make([]chatmodel.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == placeholderText {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

func endsWithConnectionError(messages []chatmodel.Message) bool {
	if len(messages) == 0 {
		return false
	}
	return messages[len(messages)-1].Content == connectionErrorText
}

// senderID is the stable per-session token correlating every message sent
// to the conversational endpoint.
func senderID(sessionID string) string {
	return "CiviBot-Session-" + sessionID
}

func botMessage(content string) chatmodel.Message {
	return chatmodel.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Author:    chatmodel.Author{Name: BotName},
		CreatedAt: chatmodel.Now(),
	}
}
