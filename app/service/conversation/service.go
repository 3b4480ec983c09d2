package conversation

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"govassist/app/client/llm"
	"govassist/app/config"
	"govassist/app/service/catalog"
	"govassist/app/service/classifier"
	"govassist/app/service/lexicon"
	"govassist/app/service/linker"
	"govassist/app/service/memory"
	"govassist/app/service/strategy"
	"govassist/app/service/suggest"
	"govassist/app/util/mylog"

	"github.com/samber/do"
)

// LLM is the external model as seen by a turn.
type LLM interface {
	Available() bool
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

type Service struct {
	cfg        *config.Config
	lib        *lexicon.Library
	cat        *catalog.Catalog
	classifier *classifier.Classifier
	linker     *linker.Linker
	router     *strategy.Router
	suggest    *suggest.Engine
	model      LLM
	now        func() time.Time

	menu *lexicon.FollowUp
}

type Option func(*Service)

// WithClock replaces time.Now for calendar based suggestions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*lexicon.Library](di),
		do.MustInvoke[*catalog.Catalog](di),
		do.MustInvoke[*classifier.Classifier](di),
		do.MustInvoke[*linker.Linker](di),
		do.MustInvoke[*strategy.Router](di),
		do.MustInvoke[*suggest.Engine](di),
		do.MustInvoke[*llm.Service](di),
	), nil
}

func NewService(
	cfg *config.Config,
	lib *lexicon.Library,
	cat *catalog.Catalog,
	cls *classifier.Classifier,
	lnk *linker.Linker,
	router *strategy.Router,
	engine *suggest.Engine,
	model LLM,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:        cfg,
		lib:        lib,
		cat:        cat,
		classifier: cls,
		linker:     lnk,
		router:     router,
		suggest:    engine,
		model:      model,
		now:        time.Now,
		menu:       buildMenu(cat),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// turn accumulates the state of one ProcessTurn call until it is recorded.
type turn struct {
	utterance lexicon.Utterance
	message   memory.Message
	intent    *lexicon.Intent
	service   *catalog.Service
	entities  []linker.LinkedEntity
	extra     []suggest.Suggestion
	result    TurnResult
}

// ProcessTurn answers one user message and updates mem. It never fails: every error
// is resolved into a reply, and an unexpected fault yields a safe default reply.
func (s *Service) ProcessTurn(ctx context.Context, mem *memory.Memory, text string) (result TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Turn failed",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result = TurnResult{
				Reply: safeReply,
				Kind:  KindError,
			}
		}
	}()

	u := lexicon.NewUtterance(text)

	// emergency language wins over follow-ups, repeats and unintelligible input
	if _, ok := s.lib.EmergencyTrigger(u); ok {
		t := s.newTurn(mem, u, text)
		res := s.classify(mem, t)
		s.route(mem, t, res)
		return s.emergency(mem, t)
	}

	if followUp, ok := mem.ActiveFollowUp(); ok {
		if option, ok := followUp.Match(u); ok {
			return s.resolveFollowUp(mem, u, text, followUp, option)
		}
	}

	t := s.newTurn(mem, u, text)

	if mem.RepeatCount(t.message.Normalized) >= s.cfg.Memory.RepeatThreshold {
		mem.IncrementClarification()
		t.result.Reply = deEscalationReply
		t.result.Kind = KindDeEscalation
		return s.finish(mem, t)
	}

	if reason, bad := classifier.DetectUnintelligible(u); bad {
		slog.Debug("Unintelligible input", "reason", reason)
		return s.clarify(mem, t, unintelligibleReply(reason))
	}

	res := s.classify(mem, t)
	decision := s.route(mem, t, res)

	if decision.Strategy == strategy.Emergency {
		return s.emergency(mem, t)
	}

	if res.NeedsClarification {
		return s.disambiguate(mem, t, res)
	}

	localAnswer := s.localAnswer(t)

	if decision.UseExternalModel {
		resp, err := s.model.Complete(ctx, s.buildRequest(mem, t, decision, localAnswer))
		if err == nil {
			mem.ClearFollowUp()
			mem.ResetClarification()
			t.result.Reply = resp.Text
			t.result.Kind = KindAnswer
			t.result.Usage = &resp.Usage
			t.extra = aiSuggestions(resp.Suggestions)
			return s.finish(mem, t)
		}

		cause := llm.Classify(err)
		t.result.FailureCause = cause
		slog.Warn("Model call failed, falling back to rules",
			"cause", cause,
			"strategy", decision.Strategy,
			"error", err,
			mylog.TelegramKey, cause == llm.CauseQuota,
		)

		if localAnswer == "" {
			mem.ClearFollowUp()
			t.result.Reply = s.fallbackReply(t)
			t.result.Kind = KindFallback
			return s.finish(mem, t)
		}
	}

	if localAnswer == "" {
		return s.clarify(mem, t, notUnderstoodReply)
	}

	// a new question replaces whatever follow-up was still pending
	mem.ClearFollowUp()
	mem.ResetClarification()
	t.result.Reply, t.result.Kind = s.withFollowUp(mem, t.intent, localAnswer)

	return s.finish(mem, t)
}

func (s *Service) newTurn(mem *memory.Memory, u lexicon.Utterance, text string) *turn {
	return &turn{
		utterance: u,
		message: mem.AddMessage(memory.Message{
			Role: memory.RoleUser,
			Text: text,
		}),
	}
}

// classify resolves the intent, entities and service of the turn.
func (s *Service) classify(mem *memory.Memory, t *turn) classifier.Result {
	res := s.classifier.Classify(t.utterance, classifier.Context{
		LastIntent:   mem.LastIntent(),
		ActiveTopics: mem.ActiveTopics(),
	})

	t.intent = res.Intent
	t.result.Intent = res.IntentName()
	t.result.Confidence = res.Confidence
	t.result.RegexConfirmed = res.RegexConfirmed
	for _, alt := range res.Alternatives {
		t.result.Alternatives = append(t.result.Alternatives, alt.Intent.Name)
	}

	t.entities = s.linker.Link(t.message.Entities)
	t.result.Entities = t.entities
	if svc, ok := s.linker.DetectService(t.utterance, res.Intent); ok {
		t.service = svc
	}

	return res
}

func (s *Service) route(mem *memory.Memory, t *turn, res classifier.Result) strategy.Decision {
	complexity := s.router.AnalyzeComplexity(t.utterance, strategy.ComplexityContext{
		Sentiment:      mem.Sentiment(),
		TopicCount:     len(t.message.Topics),
		Clarifications: mem.Clarifications(),
	})
	decision := s.router.DetermineStrategy(res, complexity, s.model.Available())

	t.result.Complexity = &complexity
	t.result.Decision = &decision

	return decision
}

func (s *Service) emergency(mem *memory.Memory, t *turn) TurnResult {
	var trigger string
	if t.result.Complexity != nil {
		trigger = t.result.Complexity.Trigger
	}

	slog.Warn("Emergency turn",
		"trigger", trigger,
		"text", t.utterance.Raw(),
		mylog.TelegramKey, true,
	)

	t.result.Reply = emergencyReply
	t.result.Kind = KindEmergency

	return s.finish(mem, t)
}

// resolveFollowUp answers a reply that selects one option of the pending follow-up.
func (s *Service) resolveFollowUp(
	mem *memory.Memory,
	u lexicon.Utterance,
	text string,
	followUp memory.FollowUp,
	option lexicon.Option,
) TurnResult {
	mem.ClearFollowUp()
	mem.ResetClarification()

	t := &turn{
		utterance: u,
		message: mem.AddMessage(memory.Message{
			Role:   memory.RoleUser,
			Text:   text,
			Intent: followUp.Intent,
		}),
		result: TurnResult{
			Reply:      option.Answer,
			Kind:       KindAnswer,
			Confidence: 1,
		},
	}

	switch followUp.Intent {
	case menuFollowUp:
		mem.RecordDepartment(option.Value)

	case clarifyFollowUp:
		intent, ok := s.lib.Intent(option.Value)
		if !ok {
			break
		}

		t.intent = intent
		t.result.Intent = intent.Name
		t.service, _ = s.linker.DetectService(u, intent)
		t.result.Reply, t.result.Kind = s.withFollowUp(mem, intent, s.localAnswer(t))

	default:
		intent, ok := s.lib.Intent(followUp.Intent)
		if !ok {
			break
		}

		t.intent = intent
		t.result.Intent = intent.Name
		t.service, _ = s.linker.DetectService(u, intent)
		if intent.Topic != "" {
			mem.ResolveTopic(intent.Topic)
		}
	}

	return s.finish(mem, t)
}

// clarify asks the user to rephrase, switching to the menu once the clarification
// threshold is reached.
func (s *Service) clarify(mem *memory.Memory, t *turn, reply string) TurnResult {
	t.intent = nil
	t.service = nil
	t.result.NeedsClarification = true

	if mem.IncrementClarification() >= s.cfg.Memory.ClarificationThreshold {
		return s.showMenu(mem, t)
	}

	t.result.Reply = reply
	t.result.Kind = KindClarification

	return s.finish(mem, t)
}

func (s *Service) disambiguate(mem *memory.Memory, t *turn, res classifier.Result) TurnResult {
	t.intent = nil
	t.service = nil
	t.result.NeedsClarification = true

	if mem.IncrementClarification() >= s.cfg.Memory.ClarificationThreshold {
		return s.showMenu(mem, t)
	}

	choices := []*lexicon.Intent{res.Intent}
	for _, alt := range res.Alternatives {
		if alt.Confidence > res.Confidence-s.cfg.Classifier.AmbiguityMargin {
			choices = append(choices, alt.Intent)
		}
	}

	followUp := clarifyQuestion(choices)
	mem.SetFollowUp(clarifyFollowUp, followUp)

	t.result.Reply = formatFollowUp(followUp)
	t.result.Kind = KindClarification

	return s.finish(mem, t)
}

func (s *Service) showMenu(mem *memory.Memory, t *turn) TurnResult {
	mem.SetFollowUp(menuFollowUp, s.menu)

	t.result.Reply = stillConfusedReply + "\n\n" + formatFollowUp(s.menu)
	t.result.Kind = KindMenu

	return s.finish(mem, t)
}

// withFollowUp starts the intent's follow-up question, if it has one, after the answer.
func (s *Service) withFollowUp(mem *memory.Memory, intent *lexicon.Intent, answer string) (string, Kind) {
	if intent == nil || !intent.HasFollowUp() {
		return answer, KindAnswer
	}

	mem.SetFollowUp(intent.Name, intent.FollowUp)

	return answer + "\n\n" + formatFollowUp(intent.FollowUp), KindFollowUp
}

// finish records the reply in memory and attaches suggestions.
func (s *Service) finish(mem *memory.Memory, t *turn) TurnResult {
	if t.intent != nil {
		mem.SetLastIntent(t.intent.Name)
		mem.RecordDepartment(t.intent.Department)
	}
	if t.service != nil {
		mem.RecordDepartment(t.service.Department)
		mem.RecordService(t.service.ID)
		t.result.Service = t.service.ID
	}

	if followUp, ok := mem.ActiveFollowUp(); ok {
		t.result.FollowUp = &followUp
	}

	mem.AddMessage(memory.Message{
		Role:   memory.RoleAssistant,
		Text:   t.result.Reply,
		Intent: t.result.Intent,
	})

	if t.result.Kind != KindEmergency {
		input := suggest.Input{
			Now:        s.now(),
			LastIntent: mem.LastIntent(),
			RecentText: recentUserText(mem),
			Discussed:  mem.Services(),
			Sentiment:  mem.Sentiment(),
			Entities:   s.contextEntities(mem, t.entities),
			Extra:      t.extra,
		}
		if t.service != nil {
			input.CurrentService = t.service.ID
		}

		t.result.Suggestions = s.suggest.Generate(input)
	}

	var strategyName strategy.Name
	if t.result.Decision != nil {
		strategyName = t.result.Decision.Strategy
	}

	slog.Info("Processed turn",
		"kind", t.result.Kind,
		"intent", t.result.Intent,
		"confidence", t.result.Confidence,
		"strategy", strategyName,
		"clarifications", mem.Clarifications(),
	)

	return t.result
}
