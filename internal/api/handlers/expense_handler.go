package handlers

import (
	"context"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/dto"
	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"
	"github.com/Ibraz94/fleetbold-expenses/internal/service"
	"github.com/Ibraz94/fleetbold-expenses/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ExpenseHandler struct {
	lifecycle  *service.LifecycleService
	candidates *service.CandidateService
	matcher    *service.MatcherService
	audit      *service.AuditService
	export     *service.ExportService
	store      *storage.ReceiptStore
	logger     *zap.Logger
}

func NewExpenseHandler(
	lifecycle *service.LifecycleService,
	candidates *service.CandidateService,
	matcher *service.MatcherService,
	audit *service.AuditService,
	export *service.ExportService,
	store *storage.ReceiptStore,
	logger *zap.Logger,
) *ExpenseHandler {
	return &ExpenseHandler{
		lifecycle:  lifecycle,
		candidates: candidates,
		matcher:    matcher,
		audit:      audit,
		export:     export,
		store:      store,
		logger:     logger,
	}
}

// Create handles manual expense entry and candidate promotion. A request
// carrying file_ref is treated as promotion of a recognized candidate.
func (h *ExpenseHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.logger, apperr.Validation("invalid request body"))
	}
	if err := dto.Validate(req); err != nil {
		return respondError(c, h.logger, apperr.Validation("%v", err))
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return respondError(c, h.logger, apperr.Validation("amount must be a decimal number"))
	}
	occurred, err := time.Parse(time.DateOnly, req.DateOccurred)
	if err != nil {
		return respondError(c, h.logger, apperr.Validation("date_occurred must be YYYY-MM-DD"))
	}

	actor := actorFrom(c)
	var expense *models.Expense
	if req.FileRef != "" {
		candidate := models.ExpenseCandidate{
			FileRef:       req.FileRef,
			ConfirmedType: models.ExpenseType(req.Type),
			Amount:        amount,
			Vendor:        req.Vendor,
			Date:          occurred,
		}
		expense, err = h.candidates.Promote(c.Context(), candidate, req.Description, actor)
	} else {
		expense, err = h.lifecycle.Create(c.Context(), service.CreateExpenseParams{
			Description:  req.Description,
			Type:         models.ExpenseType(req.Type),
			Amount:       amount,
			DateOccurred: occurred,
			Notes:        req.Notes,
		}, actor)
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OK(dto.ToExpenseResponse(expense)))
}

func (h *ExpenseHandler) List(c *fiber.Ctx) error {
	filter, err := parseExpenseFilter(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	expenses, total, err := h.lifecycle.List(c.Context(), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	resp := dto.ExpenseListResponse{
		Items: make([]dto.ExpenseResponse, 0, len(expenses)),
		Pagination: dto.Pagination{
			Total:   total,
			Page:    filter.Page,
			PerPage: filter.PerPage,
		},
	}
	for _, e := range expenses {
		resp.Items = append(resp.Items, dto.ToExpenseResponse(e))
	}
	return c.JSON(dto.OK(resp))
}

func (h *ExpenseHandler) Get(c *fiber.Ctx) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	expense, err := h.lifecycle.Get(c.Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dto.OK(dto.ToExpenseResponse(expense)))
}

func (h *ExpenseHandler) Edit(c *fiber.Ctx) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req dto.EditExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.logger, apperr.Validation("invalid request body"))
	}
	if err := dto.Validate(req); err != nil {
		return respondError(c, h.logger, apperr.Validation("%v", err))
	}

	params := service.EditExpenseParams{
		Description: req.Description,
		Notes:       req.Notes,
	}
	if req.Type != nil {
		t := models.ExpenseType(*req.Type)
		params.Type = &t
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return respondError(c, h.logger, apperr.Validation("amount must be a decimal number"))
		}
		params.Amount = &amount
	}
	if req.DateOccurred != nil {
		occurred, err := time.Parse(time.DateOnly, *req.DateOccurred)
		if err != nil {
			return respondError(c, h.logger, apperr.Validation("date_occurred must be YYYY-MM-DD"))
		}
		params.DateOccurred = &occurred
	}
	if req.Status != nil {
		status := models.ExpenseStatus(*req.Status)
		params.Status = &status
	}

	expense, err := h.lifecycle.Edit(c.Context(), id, params, actorFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dto.OK(dto.ToExpenseResponse(expense)))
}

func (h *ExpenseHandler) Delete(c *fiber.Ctx) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.lifecycle.Delete(c.Context(), id, actorFrom(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dto.OK(fiber.Map{"deleted": true}))
}

func (h *ExpenseHandler) Assign(c *fiber.Ctx) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.logger, apperr.Validation("invalid request body"))
	}

	target := service.AssignTarget{ReservationNumber: req.ReservationNumber}
	if req.ReservationID != "" {
		rid, err := uuid.Parse(req.ReservationID)
		if err != nil {
			return respondError(c, h.logger, apperr.Validation("reservation_id must be a UUID"))
		}
		target.ReservationID = &rid
	}

	expense, err := h.lifecycle.Assign(c.Context(), id, target, actorFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dto.OK(dto.ToExpenseResponse(expense)))
}

func (h *ExpenseHandler) Approve(c *fiber.Ctx) error {
	return h.runTransition(c, h.lifecycle.Approve)
}

func (h *ExpenseHandler) Reject(c *fiber.Ctx) error {
	return h.runTransition(c, h.lifecycle.Reject)
}

func (h *ExpenseHandler) MarkUnbillable(c *fiber.Ctx) error {
	return h.runTransition(c, h.lifecycle.MarkUnbillable)
}

func (h *ExpenseHandler) MarkInvoiced(c *fiber.Ctx) error {
	return h.runTransition(c, h.lifecycle.MarkInvoiced)
}

func (h *ExpenseHandler) MarkPaid(c *fiber.Ctx) error {
	return h.runTransition(c, h.lifecycle.MarkPaid)
}

func (h *ExpenseHandler) runTransition(c *fiber.Ctx, op func(ctx context.Context, id uuid.UUID, actor string) (*models.Expense, error)) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	expense, err := op(c.Context(), id, actorFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dto.OK(dto.ToExpenseResponse(expense)))
}

// Matches returns ranked reconciliation candidates for an expense.
func (h *ExpenseHandler) Matches(c *fiber.Ctx) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	expense, err := h.lifecycle.Get(c.Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	page, perPage := parsePage(c)
	matches, hasNext, err := h.matcher.Search(c.Context(), expense, c.Query("query"), page, perPage)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dto.OK(dto.ToReservationListResponse(matches, hasNext)))
}

func (h *ExpenseHandler) Receipt(c *fiber.Ctx) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	expense, err := h.lifecycle.Get(c.Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if expense.ReceiptReference == "" {
		return respondError(c, h.logger, apperr.NotFound("no receipt stored for expense %s", id))
	}
	return c.JSON(dto.OK(dto.ReceiptURLResponse{
		ExpenseID: expense.ID.String(),
		URL:       h.store.URL(expense.ReceiptReference),
	}))
}

func (h *ExpenseHandler) AppendNote(c *fiber.Ctx) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.logger, apperr.Validation("invalid request body"))
	}
	if err := dto.Validate(req); err != nil {
		return respondError(c, h.logger, apperr.Validation("%v", err))
	}

	ev, err := h.audit.AppendNote(c.Context(), id, actorFrom(c), req.Text)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(dto.ToAuditEventResponse(ev)))
}

func (h *ExpenseHandler) Events(c *fiber.Ctx) error {
	id, err := parseExpenseID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	events, err := h.audit.List(c.Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	resp := dto.AuditEventListResponse{Items: make([]dto.AuditEventResponse, 0, len(events))}
	for _, ev := range events {
		resp.Items = append(resp.Items, dto.ToAuditEventResponse(ev))
	}
	return c.JSON(dto.OK(resp))
}

func (h *ExpenseHandler) Export(c *fiber.Ctx) error {
	filter, err := parseExpenseFilter(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	filter.Page = 1
	filter.PerPage = exportMaxRows

	data, err := h.export.ExportXLSX(c.Context(), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="expenses.xlsx"`)
	return c.Send(data)
}

func parseExpenseFilter(c *fiber.Ctx) (repository.ExpenseFilter, error) {
	page, perPage := parsePage(c)
	filter := repository.ExpenseFilter{Page: page, PerPage: perPage}

	if t := c.Query("type"); t != "" {
		parsed, ok := models.ParseExpenseType(t)
		if !ok {
			return filter, apperr.Validation("unknown expense type %q", t)
		}
		filter.Type = &parsed
	}
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return filter, apperr.Validation("from must be YYYY-MM-DD")
		}
		filter.From = &parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return filter, apperr.Validation("to must be YYYY-MM-DD")
		}
		filter.To = &parsed
	}
	return filter, nil
}
