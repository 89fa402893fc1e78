package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/store"
)

// perfectRewardKey marks the one rewarded attempt per user and quiz.
const perfectRewardKey = "perfect"

var errAlreadyCompleted = errors.New("already completed")

// RewardDispatcher turns completion events into coins, streak days and track checks.
type RewardDispatcher struct {
	base
	ledger  *Ledger
	streaks *StreakTracker
	tracks  *TrackProgression
}

func NewRewardDispatcher(b base, ledger *Ledger, streaks *StreakTracker, tracks *TrackProgression) *RewardDispatcher {
	return &RewardDispatcher{base: b.named("rewards"), ledger: ledger, streaks: streaks, tracks: tracks}
}

type CompletionResult struct {
	AlreadyCompleted bool          `json:"already_completed"`
	CoinsEarned      int64         `json:"coins_earned"`
	Multiplier       float64       `json:"multiplier"`
	Streak           *StreakUpdate `json:"streak,omitempty"`
	Advancement      *Advancement  `json:"advancement,omitempty"`
}

type QuizResult struct {
	CompletionResult
	AttemptID string `json:"attempt_id"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	Perfect   bool   `json:"perfect"`
}

func applyMultiplier(base int64, multiplier float64) int64 {
	return int64(math.Round(float64(base) * multiplier))
}

// currentTrackConvertible reports whether coins earned on the user's current track
// count toward the convertible balance. Users without a track earn locked coins.
func currentTrackConvertible(ctx context.Context, tx store.Store, profile *models.Profile) (bool, error) {
	if profile.CurrentTrackID == nil {
		return false, nil
	}
	track, err := tx.GetTrack(ctx, *profile.CurrentTrackID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("track", err)
	}
	return track.CoinsConvertible, nil
}

// afterActivity runs the streak update and the track check that follow every completion.
func (r *RewardDispatcher) afterActivity(ctx context.Context, tx store.Store, userID string, res *CompletionResult) error {
	streak, err := r.streaks.RecordActivity(ctx, tx, userID)
	if err != nil {
		return err
	}
	adv, err := r.tracks.CheckAdvancement(ctx, tx, userID)
	if err != nil {
		return err
	}
	res.Streak = streak
	res.Advancement = adv
	return nil
}

// CompleteContent rewards the first completion of a published content item.
func (r *RewardDispatcher) CompleteContent(ctx context.Context, userID, contentID string) (*CompletionResult, error) {
	res := &CompletionResult{}
	err := r.inTx(ctx, "complete content", func(ctx context.Context, tx store.Store) error {
		content, err := tx.GetContentItem(ctx, contentID)
		if err != nil {
			return storeErr("content", err)
		}
		if !content.IsPublished {
			return notFound("content")
		}
		profile, err := tx.LockProfile(ctx, userID)
		if err != nil {
			return storeErr("profile", err)
		}

		if res.Multiplier, err = r.streaks.currentMultiplier(ctx, tx, userID); err != nil {
			return err
		}
		reward := applyMultiplier(content.CoinsReward, res.Multiplier)
		convertible, err := currentTrackConvertible(ctx, tx, profile)
		if err != nil {
			return err
		}

		progress := &models.ContentProgress{
			UserID:      userID,
			ContentID:   content.ID,
			CoinsEarned: reward,
			CompletedAt: r.clock.Now(),
		}
		if err := tx.CreateContentProgress(ctx, progress); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return errAlreadyCompleted
			}
			return storeErr("save content progress", err)
		}

		if reward > 0 {
			if _, err := r.ledger.Append(ctx, tx, userID, reward, models.SourceContentCompletion, &content.ID, convertible,
				fmt.Sprintf("Conteúdo completado (%.2fx)", res.Multiplier)); err != nil {
				return err
			}
		}
		res.CoinsEarned = reward
		return r.afterActivity(ctx, tx, userID, res)
	})
	if errors.Is(err, errAlreadyCompleted) {
		return &CompletionResult{AlreadyCompleted: true}, nil
	}
	if err != nil {
		return nil, err
	}
	r.log.Info("content completed",
		zap.String("user_id", userID),
		zap.String("content_id", contentID),
		zap.Int64("amount", res.CoinsEarned),
	)
	return res, nil
}

// SubmitQuiz scores answers against the questions in sort order. Only the first
// perfect attempt pays; every attempt is kept as history.
func (r *RewardDispatcher) SubmitQuiz(ctx context.Context, userID, quizID string, answers []int) (*QuizResult, error) {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, invalid("answers: %v", err)
	}

	res := &QuizResult{}
	err = r.inTx(ctx, "submit quiz", func(ctx context.Context, tx store.Store) error {
		quiz, err := tx.GetQuiz(ctx, quizID)
		if err != nil {
			return storeErr("quiz", err)
		}
		if len(quiz.Questions) == 0 {
			return notFound("quiz questions")
		}
		if len(answers) != len(quiz.Questions) {
			return invalid("expected %d answers, got %d", len(quiz.Questions), len(answers))
		}
		profile, err := tx.LockProfile(ctx, userID)
		if err != nil {
			return storeErr("profile", err)
		}

		res.Total = len(quiz.Questions)
		for i, q := range quiz.Questions {
			if answers[i] == q.CorrectOptionIndex {
				res.Score++
			}
		}
		res.Perfect = res.Score == res.Total

		attempt := &models.QuizAttempt{
			UserID:         userID,
			QuizID:         quiz.ID,
			Answers:        datatypes.JSON(answersJSON),
			Score:          res.Score,
			TotalQuestions: res.Total,
			CompletedAt:    r.clock.Now(),
		}

		if res.Multiplier, err = r.streaks.currentMultiplier(ctx, tx, userID); err != nil {
			return err
		}
		if res.Perfect {
			paid, err := tx.HasRewardedQuizAttempt(ctx, userID, quiz.ID)
			if err != nil {
				return storeErr("quiz attempts", err)
			}
			if paid {
				res.AlreadyCompleted = true
			} else {
				key := perfectRewardKey
				attempt.RewardKey = &key
				attempt.CoinsEarned = applyMultiplier(quiz.CoinsReward, res.Multiplier)
			}
		}

		if err := tx.CreateQuizAttempt(ctx, attempt); err != nil {
			return storeErr("save quiz attempt", err)
		}
		res.AttemptID = attempt.ID
		res.CoinsEarned = attempt.CoinsEarned

		if attempt.CoinsEarned > 0 {
			convertible, err := currentTrackConvertible(ctx, tx, profile)
			if err != nil {
				return err
			}
			if _, err := r.ledger.Append(ctx, tx, userID, attempt.CoinsEarned, models.SourceQuizCompletion, &quiz.ID, convertible,
				fmt.Sprintf("Quiz completado (%d/%d)", res.Score, res.Total)); err != nil {
				return err
			}
		}
		return r.afterActivity(ctx, tx, userID, &res.CompletionResult)
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("quiz submitted",
		zap.String("user_id", userID),
		zap.String("quiz_id", quizID),
		zap.Int("score", res.Score),
		zap.Int64("amount", res.CoinsEarned),
	)
	return res, nil
}
