package api

import (
	"bytes"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/shriniketh555/medcare/internal/errors"
	"github.com/shriniketh555/medcare/internal/export"
	"github.com/shriniketh555/medcare/internal/tracker"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

// errorJSON maps domain errors onto HTTP statuses: not-found codes to 404,
// validation codes to 400, everything else to 500.
func errorJSON(c *fiber.Ctx, err error) error {
	code := apperrors.GetCode(err)
	status := fiber.StatusInternalServerError
	switch {
	case code == "MED_001" || code == "INTAKE_001":
		status = fiber.StatusNotFound
	case strings.HasPrefix(code, "VAL"):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": code})
}

// ==================== Medicines ====================

func (s *Server) handleListMedicines(c *fiber.Ctx) error {
	return c.JSON(s.tracker.Medicines())
}

func (s *Server) handleGetMedicine(c *fiber.Ctx) error {
	med, err := s.tracker.Medicine(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(med)
}

func (s *Server) handleAddMedicine(c *fiber.Ctx) error {
	var req tracker.Medicine
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	med, err := s.tracker.AddMedicine(c.Context(), req)
	if err != nil {
		// A persistence failure still leaves the medicine live in memory.
		if med != nil {
			s.logger.Warn("Medicine added, persistence degraded", zap.Error(err))
			return c.Status(fiber.StatusCreated).JSON(med)
		}
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(med)
}

func (s *Server) handleUpdateMedicine(c *fiber.Ctx) error {
	var patch tracker.MedicineUpdate
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	med, err := s.tracker.UpdateMedicine(c.Context(), c.Params("id"), patch)
	if err != nil {
		if med != nil {
			s.logger.Warn("Medicine updated, persistence degraded", zap.Error(err))
			return c.JSON(med)
		}
		return errorJSON(c, err)
	}
	return c.JSON(med)
}

func (s *Server) handleDeleteMedicine(c *fiber.Ctx) error {
	if err := s.tracker.DeleteMedicine(c.Context(), c.Params("id")); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Intakes ====================

func (s *Server) handleSetIntakeStatus(c *fiber.Ctx) error {
	var req struct {
		MedicineID string `json:"medicine_id"`
		Date       string `json:"date"`
		Time       string `json:"time"`
		Status     string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	intake, err := s.tracker.SetIntakeStatus(c.Context(), req.MedicineID, req.Date, req.Time, tracker.Status(req.Status))
	if err != nil {
		if intake != nil {
			s.logger.Warn("Intake recorded, persistence degraded", zap.Error(err))
			return c.JSON(intake)
		}
		return errorJSON(c, err)
	}
	return c.JSON(intake)
}

func (s *Server) handleListIntakes(c *fiber.Ctx) error {
	start := c.Query("start")
	end := c.Query("end")
	if start == "" && end == "" {
		return c.JSON(s.tracker.Intakes())
	}
	return c.JSON(s.tracker.IntakesBetween(start, end))
}

// ==================== Schedule & reports ====================

// handleSchedule returns the resolved dose schedule for a date. The optional
// status filter serves the upcoming (pending) and recent-missed views.
func (s *Server) handleSchedule(c *fiber.Ctx) error {
	date := c.Query("date", time.Now().Format(tracker.DateLayout))
	if _, err := time.Parse(tracker.DateLayout, date); err != nil {
		return errorJSON(c, apperrors.ErrInvalidDate)
	}

	schedule := s.tracker.Schedule(date)
	if status := c.Query("status"); status != "" {
		filtered := make([]tracker.ResolvedObligation, 0, len(schedule))
		for _, ob := range schedule {
			if ob.Status == tracker.Status(status) {
				filtered = append(filtered, ob)
			}
		}
		schedule = filtered
	}
	return c.JSON(schedule)
}

func (s *Server) handleReport(c *fiber.Ctx) error {
	end := c.Query("end", time.Now().Format(tracker.DateLayout))
	start := c.Query("start")
	if start == "" {
		// Default to the trailing week.
		to, err := time.Parse(tracker.DateLayout, end)
		if err != nil {
			return errorJSON(c, apperrors.ErrInvalidDate)
		}
		start = to.AddDate(0, 0, -6).Format(tracker.DateLayout)
	}

	report, err := s.tracker.Report(start, end, c.Query("medicine_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(report)
}

// ==================== Profile ====================

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	return c.JSON(s.tracker.Profile())
}

func (s *Server) handleSetProfile(c *fiber.Ctx) error {
	var req tracker.Profile
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.tracker.SetProfile(c.Context(), req); err != nil {
		s.logger.Warn("Profile saved, persistence degraded", zap.Error(err))
	}
	return c.JSON(s.tracker.Profile())
}

// ==================== Export ====================

func (s *Server) handleExportCSV(c *fiber.Ctx) error {
	medicines, _ := s.tracker.Snapshot()

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.tracker.Intakes(), medicines); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "export failed"})
	}

	c.Set("Content-Type", "text/csv; charset=utf-8")
	c.Set("Content-Disposition", `attachment; filename="medicine-history.csv"`)
	return c.Send(buf.Bytes())
}
