package handlers

import (
	"io"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/dto"
	"github.com/Ibraz94/fleetbold-expenses/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UploadHandler struct {
	intake     *service.IntakeService
	candidates *service.CandidateService
	logger     *zap.Logger
}

func NewUploadHandler(intake *service.IntakeService, candidates *service.CandidateService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		intake:     intake,
		candidates: candidates,
		logger:     logger,
	}
}

// Upload accepts one or more receipt documents, runs recognition and returns
// the resulting expense candidates for operator confirmation. Candidates are
// not persisted; only the receipt files are stored.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, h.logger, apperr.Validation("multipart form is required"))
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		return respondError(c, h.logger, apperr.Validation("at least one file is required"))
	}

	items := make([]dto.UploadResponse, 0, len(files))
	for _, header := range files {
		src, err := header.Open()
		if err != nil {
			return respondError(c, h.logger, apperr.Validation("failed to open uploaded file %q", header.Filename))
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return respondError(c, h.logger, apperr.Validation("failed to read uploaded file %q", header.Filename))
		}

		result, err := h.intake.Accept(c.Context(), header.Filename, data)
		if err != nil {
			return respondError(c, h.logger, err)
		}

		candidates := h.candidates.Build(result.Recognition, result.FileRef)
		item := dto.UploadResponse{
			FileRef:     result.FileRef,
			Recognition: dto.ToRecognitionResponse(result.Recognition),
			Candidates:  make([]dto.CandidateResponse, 0, len(candidates)),
		}
		for _, cand := range candidates {
			item.Candidates = append(item.Candidates, dto.ToCandidateResponse(cand))
		}
		items = append(items, item)
	}

	return c.Status(fiber.StatusOK).JSON(dto.OK(items))
}
