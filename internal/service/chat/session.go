package chat

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/healbuddy/backend/internal/model/advisory"
	"github.com/healbuddy/backend/internal/model/chat"
	"github.com/healbuddy/backend/internal/model/language"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/internal/model/turn"
	"github.com/healbuddy/backend/internal/service/ai"
)

// WelcomeMessage is the banner that opens every session.
const WelcomeMessage = `Hi! I'm HealBuddy, your health helper. I can help you with:

• Check your symptoms
• Give health tips  
• Emergency help
• Find doctors

⚠️ **Important**: I give health info only. See a real doctor for treatment.

What health question do you have?`

const subscriberBuffer = 32

// Reply is the outcome of one submitted query.
type Reply struct {
	Advisory advisory.Result `json:"advisory"`
	Messages []chat.Message  `json:"messages"`
}

// Session is one conversation. All state is guarded by mu; at most one
// Submit runs at a time.
type Session struct {
	svc       *Service
	id        string
	userID    string
	createdAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	messages        []chat.Message
	state           chat.State
	pending         bool
	pendingQuestion string
	budget          int
	followUps       []turn.FollowUp
	lastTurn        *turn.Ref
	language        string
	profile         *profile.Profile
	inFlight        bool
	closed          bool

	subscribers map[int]chan chat.Message
	nextSub     int
}

func newSession(svc *Service, id, userID, lang string, prof *profile.Profile) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		svc:         svc,
		id:          id,
		userID:      userID,
		createdAt:   time.Now().UTC(),
		ctx:         ctx,
		cancel:      cancel,
		messages:    make([]chat.Message, 0, 16),
		state:       chat.StateIdle,
		budget:      1,
		language:    lang,
		profile:     prof,
		subscribers: make(map[int]chan chat.Message),
	}
	s.appendLocked(WelcomeMessage, chat.OriginAssistant, chat.SeverityLow, false)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user, empty for anonymous sessions.
func (s *Session) UserID() string { return s.userID }

// Snapshot returns the externally visible state.
func (s *Session) Snapshot() chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := chat.Session{
		ID:              s.id,
		UserID:          s.userID,
		Language:        s.language,
		State:           s.state,
		PendingFollowUp: s.pending,
		FollowUpBudget:  s.budget,
		Closed:          s.closed,
		CreatedAt:       s.createdAt,
	}
	if s.lastTurn != nil {
		snap.LastTurnID = s.lastTurn.ID
	}
	return snap
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// Language returns the active language identifier.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// Submit runs one query through the gateway and sequences the reply. Empty
// input is rejected with ErrEmptyMessage and leaves the session untouched.
func (s *Session) Submit(ctx context.Context, text string) (Reply, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return Reply{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Reply{}, ErrSessionClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return Reply{}, ErrRequestInFlight
	}
	s.inFlight = true
	defer s.release()

	answering := s.pending
	var history []turn.FollowUp
	if answering {
		history = append(turn.CloneFollowUps(s.followUps), turn.FollowUp{Question: s.pendingQuestion, Answer: query})
	} else {
		// New topic: the follow-up allowance starts over.
		s.budget = 1
	}
	userMsg := s.appendLocked(query, chat.OriginUser, "", false)
	s.state = chat.StateAwaitingModelResponse
	lang := s.language
	prompt := BuildPrompt(PromptInput{
		Query:     query,
		Language:  lang,
		Profile:   s.profile,
		FollowUps: history,
	})
	s.mu.Unlock()

	s.publish(userMsg)

	result, abandoned := s.advise(ctx, query, prompt)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Reply{}, ErrSessionClosed
	}
	decision := Interpret(result, s.pending, s.budget)
	botMsg := s.appendLocked(decision.DisplayText, chat.OriginAssistant, result.Severity, false)
	s.pending = decision.AskFollowUp
	s.budget = decision.Budget
	s.followUps = history
	if decision.AskFollowUp {
		s.pendingQuestion = *result.FollowUpQuestion
		s.state = chat.StateAwaitingFollowUpAnswer
	} else {
		s.pendingQuestion = ""
		s.state = chat.StateIdle
	}
	s.mu.Unlock()

	s.publish(botMsg)
	if !abandoned {
		s.persist(ctx, turn.Turn{
			UserMessage:        query,
			BotResponse:        result.Response,
			Language:           lang,
			SeverityAssessment: result.Severity,
			SessionType:        turn.SessionSymptomCheck,
			FollowUpQuestions:  history,
		})
	}

	reply := Reply{Advisory: result, Messages: []chat.Message{botMsg}}
	if !decision.AskFollowUp {
		return reply, nil
	}

	if !s.wait(s.svc.opts.FollowUpDelay) {
		return reply, ErrSessionClosed
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return reply, ErrSessionClosed
	}
	followMsg := s.appendLocked(decision.FollowUpText, chat.OriginAssistant, chat.SeverityLow, true)
	s.mu.Unlock()

	s.publish(followMsg)
	reply.Messages = append(reply.Messages, followMsg)
	return reply, nil
}

// SetLanguage switches the session language. Unknown identifiers fall back
// to the default. The change is written through to the profile store in the
// background.
func (s *Session) SetLanguage(_ context.Context, id string) (language.Language, error) {
	lang := language.Lookup(id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return language.Language{}, ErrSessionClosed
	}
	s.language = lang.ID
	if s.profile != nil {
		s.profile.PreferredLanguage = lang.ID
	}
	s.mu.Unlock()

	s.svc.writeLanguage(s.id, s.userID, lang.ID)
	return lang, nil
}

// Subscribe registers an observer of appended messages. The returned cancel
// func must be called to release the subscription. Slow observers miss
// messages rather than block the session.
func (s *Session) Subscribe() (<-chan chat.Message, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan chat.Message, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close cancels any in-flight gateway call and pending follow-up, and ends
// every subscription. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// advise reports abandoned when the caller went away before the gateway
// answered. The fallback is still shown but is not a real assessment.
func (s *Session) advise(ctx context.Context, query, prompt string) (advisory.Result, bool) {
	callCtx, cancel := context.WithTimeout(s.ctx, s.svc.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	result, err := s.svc.gateway.Advise(callCtx, ai.Request{
		Prompt:                     prompt,
		Query:                      query,
		AugmentWithExternalContext: s.svc.opts.AugmentWithExternalContext,
		Schema:                     advisory.Schema(),
	})
	if err != nil {
		if ctx.Err() != nil && s.ctx.Err() == nil {
			log.Printf("[chat] session=%s caller cancelled, fallback advisory not persisted: %v", s.id, err)
			return advisory.Fallback(), true
		}
		log.Printf("[chat] session=%s gateway failed, using fallback advisory: %v", s.id, err)
		return advisory.Fallback(), false
	}
	return result, false
}

func (s *Session) persist(ctx context.Context, t turn.Turn) {
	if s.svc.turns == nil {
		return
	}
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	ref, err := s.svc.turns.Create(persistCtx, s.userID, t)
	if err != nil {
		log.Printf("[store] session=%s turn not saved: %v", s.id, err)
		return
	}

	s.mu.Lock()
	s.lastTurn = &ref
	s.mu.Unlock()
}

// wait sleeps for d unless the session is closed first.
func (s *Session) wait(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) release() {
	s.mu.Lock()
	s.inFlight = false
	if s.closed {
		s.state = chat.StateIdle
	}
	s.mu.Unlock()
}

func (s *Session) appendLocked(text string, origin chat.Origin, severity chat.Severity, followUp bool) chat.Message {
	msg := chat.Message{
		ID:        len(s.messages) + 1,
		SessionID: s.id,
		Text:      text,
		Origin:    origin,
		Severity:  severity,
		FollowUp:  followUp,
		CreatedAt: time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Session) publish(msg chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
			log.Printf("[chat] session=%s subscriber lagging, dropped message %d", s.id, msg.ID)
		}
	}
}
