// Package spacedrep 记忆卡片的间隔复习调度
package spacedrep

import (
	"time"

	"cofq_backend/internal/model"
)

// BaseIntervals 各阶段的复习间隔（天）
var BaseIntervals = []int{1, 3, 7, 14, 30, 60}

// GraduationHits 连续答对次数达到后毕业
const GraduationHits = 6

const GraduatedIntervalDays = 90

// IntervalDays 超出最后一个阶段时按最后一个间隔
func IntervalDays(stage int, graduated bool) int {
	if graduated {
		return GraduatedIntervalDays
	}
	if stage < 0 {
		stage = 0
	}
	if stage >= len(BaseIntervals) {
		return BaseIntervals[len(BaseIntervals)-1]
	}
	return BaseIntervals[stage]
}

// Init 新卡片立即到期
func Init(card *model.Flashcard, now time.Time) {
	card.Stage = 0
	card.ConsecutiveHits = 0
	card.Graduated = false
	card.NextReviewAt = now
	card.LastReviewedAt = nil
}

// Review 记录一次复习结果并计算下次复习时间
func Review(card *model.Flashcard, correct bool, now time.Time) {
	reviewed := now
	card.LastReviewedAt = &reviewed

	if !correct {
		card.ConsecutiveHits = 0
		card.Stage = 0
		card.Graduated = false
		card.NextReviewAt = now.AddDate(0, 0, BaseIntervals[0])
		return
	}

	// 第 n 次连续答对用第 n 档间隔（1,3,7,...,60），毕业后的复习才用 90 天
	wasGraduated := card.Graduated
	card.ConsecutiveHits++
	if !wasGraduated {
		card.Stage++
		if card.ConsecutiveHits >= GraduationHits {
			card.Graduated = true
		}
	}
	card.NextReviewAt = now.AddDate(0, 0, IntervalDays(card.Stage-1, wasGraduated))
}

func IsDue(card *model.Flashcard, now time.Time) bool {
	return !now.Before(card.NextReviewAt)
}
