package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/model"
	apperr "github.com/readmate/readmate/internal/pkg/errors"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/pkg/retry"
	"github.com/readmate/readmate/internal/rag"
)

type QueryInput struct {
	Question  string
	Excerpt   string
	SessionID string
	K         int
}

type ValidateResult struct {
	CanAnswer bool    `json:"can_answer"`
	Reason    string  `json:"reason,omitempty"`
	TopScore  float32 `json:"top_score"`
}

// QueryService runs the per-question pipeline: retrieve, validate, compose,
// persist. Each query is a single linear pass; transient failures are
// retried at their own stage boundary, never by restarting the pipeline.
type QueryService struct {
	retriever *rag.Retriever
	validator *rag.Validator
	composer  *rag.Composer
	limiter   *rag.Limiter
	sessions  *SessionService
	attempts  int
}

func NewQueryService(retriever *rag.Retriever, validator *rag.Validator, composer *rag.Composer, limiter *rag.Limiter, sessions *SessionService) *QueryService {
	return &QueryService{
		retriever: retriever,
		validator: validator,
		composer:  composer,
		limiter:   limiter,
		sessions:  sessions,
		attempts:  retry.DefaultAttempts,
	}
}

func (s *QueryService) Query(ctx context.Context, in QueryInput) (*model.AnswerRecord, error) {
	gc, err := s.retrieveAndValidate(ctx, in)
	if err != nil {
		return nil, err
	}

	record, err := s.composeGated(ctx, in.Question, gc)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, in.SessionID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// QueryStream behaves like Query but yields partial answer fragments; the
// final fragment carries the complete record, persisted before emission.
func (s *QueryService) QueryStream(ctx context.Context, in QueryInput) (<-chan rag.Fragment, error) {
	gc, err := s.retrieveAndValidate(ctx, in)
	if err != nil {
		return nil, err
	}

	var stream <-chan rag.Fragment
	if gc.IsGrounded {
		release, err := s.limiter.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	err = retry.Do(ctx, s.attempts, func(ctx context.Context) error {
		out, err := s.composer.ComposeStream(ctx, in.Question, gc)
		stream = out
		return err
	})
	if err != nil {
		return nil, err
	}

	// Re-emit so persistence happens after composition but before the
	// consumer sees the final record.
	forwarded := make(chan rag.Fragment)
	go func() {
		defer close(forwarded)
		for fragment := range stream {
			if fragment.Final != nil {
				if err := s.persist(ctx, in.SessionID, fragment.Final); err != nil {
					logutil.GetLogger(ctx).Error("failed to persist streamed answer", zap.Error(err))
					return
				}
			}
			select {
			case forwarded <- fragment:
			case <-ctx.Done():
				return
			}
		}
	}()
	return forwarded, nil
}

// Validate answers the "can the textbook answer this" check without
// composing anything. It is an advisory single pass; callers re-ask rather
// than lean on retries.
func (s *QueryService) Validate(ctx context.Context, question, excerpt string) (*ValidateResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", apperr.ErrInvalid)
	}
	res, err := s.retriever.Retrieve(ctx, question, excerpt, 0)
	if err != nil {
		return nil, err
	}
	gc := s.validator.Validate(res, question)
	return &ValidateResult{
		CanAnswer: gc.IsGrounded,
		Reason:    string(gc.RejectionReason),
		TopScore:  gc.TopScore,
	}, nil
}

func (s *QueryService) QueueStatus() (active, waiting, capacity int) {
	return s.limiter.Status()
}

func (s *QueryService) retrieveAndValidate(ctx context.Context, in QueryInput) (*rag.GroundedContext, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", apperr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx)

	var vec []float32
	err := retry.Do(ctx, s.attempts, func(ctx context.Context) error {
		v, err := s.retriever.EmbedQuery(ctx, rag.EffectiveQuery(question, in.Excerpt))
		vec = v
		return err
	})
	if err != nil {
		return nil, err
	}

	var res *rag.RetrievalResult
	err = retry.Do(ctx, s.attempts, func(ctx context.Context) error {
		r, err := s.retriever.SearchVector(ctx, vec, in.K)
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}

	gc := s.validator.Validate(res, question)
	if !gc.IsGrounded {
		logger.Info("question not grounded in textbook",
			zap.String("reason", string(gc.RejectionReason)),
			zap.Int("matches", len(res.Matches)),
		)
	}
	return gc, nil
}

func (s *QueryService) composeGated(ctx context.Context, question string, gc *rag.GroundedContext) (*model.AnswerRecord, error) {
	// Only grounded questions reach the generator, so only they compete
	// for a generation slot.
	if gc.IsGrounded {
		release, err := s.limiter.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	var record *model.AnswerRecord
	err := retry.Do(ctx, s.attempts, func(ctx context.Context) error {
		rec, err := s.composer.Compose(ctx, question, gc)
		record = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *QueryService) persist(ctx context.Context, sessionID string, record *model.AnswerRecord) error {
	if sessionID == "" || s.sessions == nil {
		return nil
	}
	record.SessionID = sessionID
	if err := s.sessions.AppendAnswer(ctx, record); err != nil {
		return fmt.Errorf("append answer to session %s: %w", sessionID, err)
	}
	return nil
}
