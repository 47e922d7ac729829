package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/analysis"
)

const defaultHistoryDays = 7

type bandView struct {
	Score float64 `json:"score"`
	Band  string  `json:"band"`
	Label string  `json:"label"`
	Color string  `json:"color"`
}

type trendPointView struct {
	Date       string   `json:"date"`
	Depression bandView `json:"depression"`
	Anxiety    bandView `json:"anxiety"`
}

func viewBand(score float64, metric analysis.Metric) bandView {
	band := analysis.BandOf(score)
	return bandView{Score: score, Band: band.String(), Label: band.Label(metric), Color: band.Color()}
}

func (handler *Handler) GetAnalysis(c *fiber.Ctx) error {
	subject, ok := currentIdentity(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if handler.analysis == nil {
		return c.JSON(fiber.Map{"outcome": "unavailable", "message": analysis.UnavailableMessage})
	}

	switch result := handler.analysis.FetchAnalysis(c.UserContext(), subject.ID).(type) {
	case analysis.Success:
		return c.JSON(fiber.Map{"outcome": result.Outcome(), "analysis": result.Analysis})
	case analysis.NoData:
		return c.JSON(fiber.Map{"outcome": result.Outcome(), "message": analysis.NoDataMessage})
	case analysis.Failed:
		return c.JSON(fiber.Map{"outcome": result.Outcome(), "message": result.Message})
	default:
		return c.JSON(fiber.Map{"outcome": "unavailable", "message": analysis.UnavailableMessage})
	}
}

func (handler *Handler) GetHistory(c *fiber.Ctx) error {
	subject, ok := currentIdentity(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	days := defaultHistoryDays
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || !analysis.IsRangeOption(parsed) {
			return apiError(c, fiber.StatusBadRequest, "invalid input")
		}
		days = parsed
	}

	points := []analysis.MoodTrendPoint{}
	if handler.analysis != nil {
		points = analysis.FilterRange(handler.analysis.FetchHistory(c.UserContext(), subject.ID), days)
	}

	views := make([]trendPointView, 0, len(points))
	for _, point := range points {
		views = append(views, trendPointView{
			Date:       point.Date,
			Depression: viewBand(point.DepressionScore, analysis.MetricDepression),
			Anxiety:    viewBand(point.AnxietyScore, analysis.MetricAnxiety),
		})
	}
	return c.JSON(fiber.Map{"days": days, "history": views})
}
