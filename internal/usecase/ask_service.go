package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carolinespringscc/cricket-agent/internal/config"
	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
	"github.com/carolinespringscc/cricket-agent/internal/observability"
	"github.com/carolinespringscc/cricket-agent/internal/platform/cache"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/snippet"
	"github.com/carolinespringscc/cricket-agent/internal/vectorstore"
)

// Answer sources, reported in the response envelope.
const (
	SourceSnippet = "snippet"
	SourcePlayHQ  = "playhq"
	SourceLLMRAG  = "llm_rag"
	SourceRouter  = "router"
	SourceError   = "error"
)

const answerApology = "Sorry, I couldn't look that up just now. Please try again in a few minutes."
const answerOutOfScope = "I can help with fixtures, ladder positions, rosters and recent scores for the club's teams. Try asking about one of those."

type AskInput struct {
	Text     string `json:"text"`
	Source   string `json:"source,omitempty"`
	TeamHint string `json:"team_hint,omitempty"`
}

type AskMeta struct {
	Intent    string            `json:"intent"`
	Entities  map[string]string `json:"entities,omitempty"`
	RAGMs     int64             `json:"rag_ms"`
	APIMs     int64             `json:"api_ms"`
	LatencyMs int64             `json:"latency_ms"`
	Source    string            `json:"source"`
	RequestID string            `json:"request_id"`
	CacheHit  bool              `json:"cache_hit,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type AskResult struct {
	Answer string  `json:"answer"`
	Meta   AskMeta `json:"meta"`
}

type AskConfig struct {
	TopK       int
	RAGEnabled bool
}

// AskService routes questions: regex intent detection, filtered retrieval
// with deterministic snippet scanning, a live provider fallback, and the RAG
// path as the default. Faults below the router surface as an apology plus
// meta.error, never as a transport error.
type AskService struct {
	store    vectorstore.Store
	llm      LLM
	provider UpstreamProvider
	bundle   config.IdentifierBundle
	cache    *cache.Store
	metrics  *observability.Metrics
	logger   *logging.Logger
	cfg      AskConfig

	now func() time.Time
}

func NewAskService(
	store vectorstore.Store,
	llm LLM,
	provider UpstreamProvider,
	bundle config.IdentifierBundle,
	responseCache *cache.Store,
	metrics *observability.Metrics,
	logger *logging.Logger,
	cfg AskConfig,
) *AskService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}

	return &AskService{
		store:    store,
		llm:      llm,
		provider: provider,
		bundle:   bundle,
		cache:    responseCache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func normalizeQuestion(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func (s *AskService) Answer(ctx context.Context, input AskInput) (AskResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AskService.Answer")
	defer span.End()

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return AskResult{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if s.store == nil {
		return AskResult{}, fmt.Errorf("%w: ask service is not fully configured", ErrDependencyUnavailable)
	}

	start := s.now()
	requestID := uuid.NewString()
	normalized := normalizeQuestion(text)
	cacheKey := normalized + "|" + strings.ToLower(strings.TrimSpace(input.TeamHint))

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			if result, ok := cached.(AskResult); ok {
				result.Meta.CacheHit = true
				result.Meta.RequestID = requestID
				result.Meta.LatencyMs = time.Since(start).Milliseconds()
				if s.metrics != nil {
					s.metrics.CacheHits.Inc()
					s.metrics.AskRequests.WithLabelValues(result.Meta.Intent, "cache").Inc()
				}
				s.logger.InfoContext(ctx, "answer served from cache", "request_id", requestID, "cache_hit", true)
				return result, nil
			}
		}
	}

	classification := DetectIntent(text)
	if classification.Intent == IntentUnknown && s.llm != nil {
		classified, err := s.llm.ClassifyIntent(ctx, text)
		if err != nil {
			s.logger.WarnContext(ctx, "llm classify failed", "request_id", requestID, "error", err)
			if s.metrics != nil {
				s.metrics.LLMFailures.Inc()
			}
		} else {
			classification = classified
		}
	}

	teamRef, teamResolved := s.resolveAskTeam(input.TeamHint, classification)

	meta := AskMeta{
		Intent:    string(classification.Intent),
		Entities:  classification.Entities,
		Source:    SourceRouter,
		RequestID: requestID,
	}

	answer := ""
	if classification.Intent != IntentUnknown && classification.Intent != IntentLLMRAG {
		answer = s.answerStructured(ctx, classification, teamRef, teamResolved, &meta)
	}
	if answer == "" {
		answer = s.answerRAG(ctx, text, teamRef, teamResolved, &meta)
	}
	if answer == "" && meta.Error == "" {
		answer = answerOutOfScope
	}
	if meta.Error != "" {
		answer = answerApology
		meta.Source = SourceError
	}

	meta.LatencyMs = time.Since(start).Milliseconds()
	result := AskResult{Answer: answer, Meta: meta}

	if s.metrics != nil {
		s.metrics.AskRequests.WithLabelValues(meta.Intent, meta.Source).Inc()
		s.metrics.AskLatency.WithLabelValues("total").Observe(time.Since(start).Seconds())
	}
	if s.cache != nil && meta.Source != SourceError {
		s.cache.Set(ctx, cacheKey, result)
	}
	s.logger.InfoContext(ctx, "answer produced",
		"request_id", requestID,
		"intent", meta.Intent,
		"source", meta.Source,
		"latency_ms", meta.LatencyMs,
	)
	return result, nil
}

func (s *AskService) resolveAskTeam(hint string, classification Classification) (config.TeamRef, bool) {
	if ref, ok := ResolveTeam(s.bundle, hint); ok {
		return ref, true
	}
	if ref, ok := ResolveTeam(s.bundle, classification.Entities["team"]); ok {
		return ref, true
	}
	return config.TeamRef{}, false
}

// answerStructured is the deterministic fast path: filtered retrieval plus
// snippet scanning, then a live provider call on a miss. An empty return
// falls through to RAG.
func (s *AskService) answerStructured(ctx context.Context, c Classification, teamRef config.TeamRef, teamResolved bool, meta *AskMeta) string {
	filters := map[string]string{
		document.MetaType: string(intentDocumentKind(c.Intent)),
	}
	if teamResolved && c.Intent != IntentLadderPosition {
		filters[document.MetaTeamID] = teamRef.TeamID
	}

	ragStart := s.now()
	docs := s.retrieve(ctx, questionForIntent(c), filters)
	meta.RAGMs += time.Since(ragStart).Milliseconds()
	if s.metrics != nil {
		s.metrics.AskLatency.WithLabelValues("rag").Observe(time.Since(ragStart).Seconds())
	}

	if answer, ok := s.scanSnippets(c, teamRef, docs); ok {
		meta.Source = SourceSnippet
		return answer
	}
	if s.provider == nil {
		return ""
	}

	apiStart := s.now()
	answer, ok := s.answerLive(ctx, c, teamRef, teamResolved)
	meta.APIMs += time.Since(apiStart).Milliseconds()
	if s.metrics != nil {
		s.metrics.AskLatency.WithLabelValues("api").Observe(time.Since(apiStart).Seconds())
	}
	if ok {
		meta.Source = SourcePlayHQ
		return answer
	}
	return ""
}

func intentDocumentKind(intent Intent) document.Kind {
	switch intent {
	case IntentNextFixture, IntentFixturesList:
		return document.KindFixture
	case IntentLadderPosition:
		return document.KindLadder
	case IntentRosterList, IntentPlayerTeam:
		return document.KindRoster
	case IntentPlayerLastRuns:
		return document.KindScorecard
	default:
		return document.KindFixture
	}
}

// questionForIntent builds the retrieval query from the extracted entities
// so lexical scoring keys on names rather than question boilerplate.
func questionForIntent(c Classification) string {
	parts := make([]string, 0, 2)
	if player := c.Entities["player"]; player != "" {
		parts = append(parts, player)
	}
	if team := c.Entities["team"]; team != "" {
		parts = append(parts, team)
	}
	parts = append(parts, strings.ReplaceAll(string(c.Intent), "_", " "))
	return strings.Join(parts, " ")
}

func (s *AskService) scanSnippets(c Classification, teamRef config.TeamRef, docs []document.Document) (string, bool) {
	switch c.Intent {
	case IntentNextFixture:
		return answerNextFixture(docs, s.now())
	case IntentFixturesList:
		return answerFixturesList(docs, s.now(), s.cfg.TopK)
	case IntentLadderPosition:
		return answerLadderPosition(docs, teamRef.Name)
	case IntentRosterList:
		return answerRosterList(docs)
	case IntentPlayerTeam:
		return answerPlayerTeam(docs, c.Entities["player"])
	case IntentPlayerLastRuns:
		return answerPlayerLastRuns(docs, c.Entities["player"])
	default:
		return "", false
	}
}

// answerLive regenerates snippets from a direct provider call and reuses the
// same scanners, so both paths phrase answers identically.
func (s *AskService) answerLive(ctx context.Context, c Classification, teamRef config.TeamRef, teamResolved bool) (string, bool) {
	switch c.Intent {
	case IntentNextFixture, IntentFixturesList:
		if !teamResolved {
			return "", false
		}
		games, err := s.provider.ListTeamFixtures(ctx, teamRef.TeamID, s.bundle.SeasonID)
		if err != nil {
			s.logger.WarnContext(ctx, "live fixture lookup failed", "team_id", teamRef.TeamID, "error", err)
			return "", false
		}
		docs := make([]document.Document, 0, len(games))
		for _, game := range games {
			normalized, err := snippet.NormalizeFixture(game)
			if err != nil {
				continue
			}
			docs = append(docs, document.Document{Text: snippet.Fixture(normalized)})
		}
		return s.scanSnippets(c, teamRef, docs)

	case IntentLadderPosition:
		if !teamResolved || s.bundle.GradeID == "" {
			return "", false
		}
		raw, _, err := s.provider.GetLadder(ctx, s.bundle.GradeID)
		if err != nil {
			s.logger.WarnContext(ctx, "live ladder lookup failed", "grade_id", s.bundle.GradeID, "error", err)
			return "", false
		}
		text := snippet.Ladder(snippet.NormalizeLadder(raw, s.bundle.SeasonID))
		return answerLadderPosition([]document.Document{{Text: text}}, teamRef.Name)

	case IntentRosterList, IntentPlayerTeam:
		targets := s.bundle.Teams
		if teamResolved {
			targets = []config.TeamRef{teamRef}
		}
		docs := make([]document.Document, 0, len(targets))
		for _, target := range targets {
			raw, err := s.provider.GetRoster(ctx, target.TeamID)
			if err != nil {
				s.logger.WarnContext(ctx, "live roster lookup failed", "team_id", target.TeamID, "error", err)
				continue
			}
			if raw.Team.ID == "" {
				raw.Team.ID = target.TeamID
				raw.Team.Name = target.Name
			}
			normalized := snippet.NormalizeRoster(raw, false, s.now().UTC())
			docs = append(docs, document.Document{Text: snippet.Roster(normalized)})
		}
		return s.scanSnippets(c, teamRef, docs)

	default:
		// player_last_runs has no cheap live equivalent; it would need a
		// match enumeration per team. RAG covers it instead.
		return "", false
	}
}

// answerRAG is the default path: semantic retrieval with no filters beyond
// an explicit team hint, then grounded generation.
func (s *AskService) answerRAG(ctx context.Context, question string, teamRef config.TeamRef, teamResolved bool, meta *AskMeta) string {
	if !s.cfg.RAGEnabled || s.llm == nil {
		return ""
	}

	filters := map[string]string{}
	if teamResolved {
		filters[document.MetaTeamID] = teamRef.TeamID
	}

	ragStart := s.now()
	docs := s.retrieve(ctx, question, filters)
	if len(docs) == 0 {
		meta.RAGMs += time.Since(ragStart).Milliseconds()
		return ""
	}

	snippets := make([]string, 0, len(docs))
	for _, doc := range docs {
		snippets = append(snippets, doc.Text)
	}

	result, err := s.llm.Summarise(ctx, snippets, question)
	meta.RAGMs += time.Since(ragStart).Milliseconds()
	if s.metrics != nil {
		s.metrics.AskLatency.WithLabelValues("rag").Observe(time.Since(ragStart).Seconds())
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "llm summarise failed", "request_id", meta.RequestID, "error", err)
		if s.metrics != nil {
			s.metrics.LLMFailures.Inc()
		}
		meta.Error = "llm unavailable"
		return ""
	}

	if s.metrics != nil {
		s.metrics.LLMTokens.WithLabelValues("input").Add(float64(result.InputTokens))
		s.metrics.LLMTokens.WithLabelValues("output").Add(float64(result.OutputTokens))
	}
	meta.Source = SourceLLMRAG
	return result.Answer
}

func (s *AskService) retrieve(ctx context.Context, question string, filters map[string]string) []document.Document {
	ids, err := s.store.Query(ctx, question, filters, s.cfg.TopK)
	if err != nil {
		s.logger.ErrorContext(ctx, "vector query failed", "error", err)
		if s.metrics != nil {
			s.metrics.VectorQueryErrors.Inc()
		}
		return nil
	}

	docs := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.store.GetDocument(ctx, id)
		if err != nil {
			s.logger.DebugContext(ctx, "retrieved id has no document", "doc_id", id, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
