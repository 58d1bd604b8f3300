package handlers

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-analytics/internal/api/dto"
	"github.com/spec-kit/ticket-analytics/internal/service"
	apperrors "github.com/spec-kit/ticket-analytics/pkg/util/errorutil"
)

// AnalyticsHandler serves the dashboard views.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: analyticsService}
}

// view runs the analysis and renders one slice of it.
func (h *AnalyticsHandler) view(c *fiber.Ctx, pick func(*service.Analysis) any) error {
	analysis, err := h.service.Report(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pick(analysis), "meta": reportMeta(analysis)})
}

// Report GET /api/report.
func (h *AnalyticsHandler) Report(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any { return a.Report })
}

// Metrics GET /api/metrics.
func (h *AnalyticsHandler) Metrics(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any { return a.Report.Overall })
}

// Distributions GET /api/distributions.
func (h *AnalyticsHandler) Distributions(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any { return a.Report.Distribution })
}

// SLA GET /api/sla.
func (h *AnalyticsHandler) SLA(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any { return a.Report.SLA })
}

// CSAT GET /api/csat.
func (h *AnalyticsHandler) CSAT(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any { return a.Report.CSAT })
}

// Technicians GET /api/technicians.
func (h *AnalyticsHandler) Technicians(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any {
		return dto.TechnicianBoards{
			Workload:   a.Report.Workload.Ranked(),
			SLA:        a.Report.TechnicianSLA.Ranked(),
			CSAT:       a.Report.TechnicianCSAT.Ranked(),
			Resolution: a.Report.ResolutionTimes.Ranked(),
		}
	})
}

// TechnicianSLA GET /api/technicians/sla.
func (h *AnalyticsHandler) TechnicianSLA(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any { return a.Report.TechnicianSLA.Ranked() })
}

// TechnicianCSAT GET /api/technicians/csat.
func (h *AnalyticsHandler) TechnicianCSAT(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any { return a.Report.TechnicianCSAT.Ranked() })
}

// TechnicianResolution GET /api/technicians/resolution.
func (h *AnalyticsHandler) TechnicianResolution(c *fiber.Ctx) error {
	return h.view(c, func(a *service.Analysis) any { return a.Report.ResolutionTimes.Ranked() })
}

// Validation GET /api/validation.
func (h *AnalyticsHandler) Validation(c *fiber.Ctx) error {
	validation, err := h.service.Validate(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": validation})
}

// Config GET /api/config.
func (h *AnalyticsHandler) Config(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Settings()})
}

// NarrativeContext GET /api/narrative/context.
func (h *AnalyticsHandler) NarrativeContext(c *fiber.Ctx) error {
	var q dto.NarrativeQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("rows must be an integer", nil)
	}
	nc, err := h.service.NarrativeContext(c.UserContext(), q.Rows)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": nc})
}

// History GET /api/history.
func (h *AnalyticsHandler) History(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("limit must be an integer", nil)
	}
	snapshots, err := h.service.History(c.UserContext(), q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snapshots})
}

// Uploads GET /api/uploads.
func (h *AnalyticsHandler) Uploads(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("limit must be an integer", nil)
	}
	uploads, err := h.service.Uploads(c.UserContext(), q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": uploads})
}

// Backups GET /api/backups.
func (h *AnalyticsHandler) Backups(c *fiber.Ctx) error {
	backups, err := h.service.Backups()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": backups})
}

// Upload POST /api/upload with the export in multipart field "file".
func (h *AnalyticsHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field \"file\" is required", nil)
	}
	f, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer f.Close()

	upload, err := h.service.Upload(c.UserContext(), filepath.Base(header.Filename), f)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": upload})
}

func reportMeta(a *service.Analysis) dto.ReportMeta {
	return dto.ReportMeta{
		Source:      a.Report.Source,
		Encoding:    a.Report.Encoding,
		Checksum:    a.Checksum,
		Cached:      a.Cached,
		GeneratedAt: a.GeneratedAt,
	}
}
