package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	printapp "github.com/printdesk/backend/internal/application/printing"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
	"github.com/printdesk/backend/internal/interfaces/http/middleware"
)

// PrintService is the application API the print handler drives
type PrintService interface {
	SubmitJob(ctx context.Context, req printapp.SubmitJobRequest, file []byte) (*printapp.PrintJobResponse, error)
	GetJob(ctx context.Context, id uuid.UUID) (*printapp.PrintJobResponse, error)
	ListJobsByRequester(ctx context.Context, requesterID string, req printapp.ListJobsRequest) (*printapp.ListJobsResponse, error)
	ListAllJobs(ctx context.Context, req printapp.ListJobsRequest) (*printapp.ListJobsResponse, error)
	ListDevices(ctx context.Context) ([]printapp.DeviceResponse, error)
	CancelPolling(ctx context.Context, id uuid.UUID, actor string) (*printapp.PrintJobResponse, error)
}

// PrintHandler handles print job HTTP requests
type PrintHandler struct {
	BaseHandler
	service PrintService
	maxFile int64
}

// NewPrintHandler creates a new PrintHandler. maxFileSize <= 0 leaves the
// upload size to the body limit middleware.
func NewPrintHandler(service PrintService, maxFileSize int64) *PrintHandler {
	return &PrintHandler{service: service, maxFile: maxFileSize}
}

// SubmitJob accepts a multipart upload with the "file" part and job options
// as form fields, and answers 201 with the PENDING job.
//
//	@ID				submitPrintJob
//
//	@Summary		Submit a print job
//	@Description	Upload a document with its print options. The job is recorded PENDING and handed to the backend in the background.
//	@Tags			print-jobs
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file			formData	file	true	"Document (pdf, office formats, html, text)"
//	@Param			printer_id		formData	string	true	"Target device"
//	@Param			paper_size		formData	string	false	"Paper size"	Enums(A3, A4, A5, LETTER, LEGAL)
//	@Param			copies			formData	int		false	"Copies"		minimum(1)
//	@Param			color_mode		formData	string	false	"Color mode"	Enums(COLOR, GRAYSCALE)
//	@Param			duplex_mode		formData	string	false	"Duplex mode"	Enums(SINGLE, DOUBLE)
//	@Param			orientation		formData	string	false	"Orientation"	Enums(UPRIGHT, SIDEWAYS)
//	@Param			page_layout		formData	string	false	"Page layout"	Enums(STANDARD, BOOKLET)
//	@Param			margin_profile	formData	string	false	"Margins"		Enums(NORMAL, NARROW)
//	@Param			page_selection	formData	string	false	"Page range, e.g. 2-5"
//	@Param			sheets_from		formData	int		false	"First booklet sheet"
//	@Param			sheets_to		formData	int		false	"Last booklet sheet"
//	@Success		201				{object}	APIResponse[printapp.PrintJobResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		413				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/print/jobs [post]
func (h *PrintHandler) SubmitJob(c *gin.Context) {
	var req printapp.SubmitJobRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "file", Message: "is required"}})
		return
	}
	if h.maxFile > 0 && header.Size > h.maxFile {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge,
			fmt.Sprintf("File exceeds maximum size of %d bytes", h.maxFile))
		return
	}
	f, err := header.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}

	req.RequesterID = middleware.GetRequesterID(c)
	req.RequesterName = middleware.GetRequesterName(c)
	req.FileName = header.Filename

	job, err := h.service.SubmitJob(c.Request.Context(), req, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, job)
}

// GetJob godoc
//
//	@ID				getPrintJob
//
//	@Summary		Get print job by ID
//	@Tags			print-jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"	format(uuid)
//	@Success		200	{object}	APIResponse[printapp.PrintJobResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/print/jobs/{id} [get]
func (h *PrintHandler) GetJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.service.GetJob(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// ListJobs returns a page of all jobs
//
//	@ID				listPrintJobs
//
//	@Summary		List print jobs
//	@Tags			print-jobs
//	@Produce		json
//	@Param			page		query		int		false	"Page"			minimum(1)
//	@Param			page_size	query		int		false	"Page size"		minimum(1)	maximum(100)
//	@Param			order_by	query		string	false	"Sort field"
//	@Param			order_dir	query		string	false	"Sort direction"	Enums(asc, desc)
//	@Param			status		query		string	false	"Status filter"	Enums(PENDING, PROCESSING, HELD, COMPLETED, ABORTED, CANCELED)
//	@Param			printer_id	query		string	false	"Device filter"
//	@Success		200			{object}	APIResponse[[]printapp.PrintJobResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/print/jobs [get]
func (h *PrintHandler) ListJobs(c *gin.Context) {
	var req printapp.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.service.ListAllJobs(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListRequesterJobs returns a page of jobs submitted by :requester_id
//
//	@ID				listRequesterPrintJobs
//
//	@Summary		List a requester's print jobs
//	@Tags			print-jobs
//	@Produce		json
//	@Param			requester_id	path		string	true	"Requester ID"
//	@Param			page			query		int		false	"Page"		minimum(1)
//	@Param			page_size		query		int		false	"Page size"	minimum(1)	maximum(100)
//	@Param			status			query		string	false	"Status filter"
//	@Success		200				{object}	APIResponse[[]printapp.PrintJobResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/print/requesters/{requester_id}/jobs [get]
func (h *PrintHandler) ListRequesterJobs(c *gin.Context) {
	h.listByRequester(c, c.Param("requester_id"))
}

// ListMyJobs returns a page of the caller's own jobs
//
//	@ID				listMyPrintJobs
//
//	@Summary		List my print jobs
//	@Tags			print-jobs
//	@Produce		json
//	@Param			page		query		int		false	"Page"		minimum(1)
//	@Param			page_size	query		int		false	"Page size"	minimum(1)	maximum(100)
//	@Param			status		query		string	false	"Status filter"
//	@Success		200			{object}	APIResponse[[]printapp.PrintJobResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/print/me/jobs [get]
func (h *PrintHandler) ListMyJobs(c *gin.Context) {
	requester := middleware.GetRequesterID(c)
	if requester == "" {
		h.Unauthorized(c, "Authentication required")
		return
	}
	h.listByRequester(c, requester)
}

func (h *PrintHandler) listByRequester(c *gin.Context, requesterID string) {
	var req printapp.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.service.ListJobsByRequester(c.Request.Context(), requesterID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// CancelPolling stops status polling for a job and marks it CANCELED
//
//	@ID				cancelPrintJobPolling
//
//	@Summary		Cancel status polling
//	@Description	Stop following a job and record it CANCELED. Finished jobs answer 409.
//	@Tags			print-jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"	format(uuid)
//	@Success		200	{object}	APIResponse[printapp.PrintJobResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/print/jobs/{id}/cancel-polling [post]
func (h *PrintHandler) CancelPolling(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	actor := middleware.GetRequesterName(c)
	if actor == "" {
		actor = middleware.GetRequesterID(c)
	}
	job, err := h.service.CancelPolling(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// ListDevices returns the device catalog
//
//	@ID				listPrintDevices
//
//	@Summary		List devices
//	@Tags			print-devices
//	@Produce		json
//	@Success		200	{object}	APIResponse[[]printapp.DeviceResponse]
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/print/devices [get]
func (h *PrintHandler) ListDevices(c *gin.Context) {
	devices, err := h.service.ListDevices(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, devices)
}

func (h *PrintHandler) jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID format")
		return uuid.Nil, false
	}
	return id, true
}
