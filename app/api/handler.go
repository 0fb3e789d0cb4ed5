package api

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ragserver/app/service"
	"ragserver/model"
	"ragserver/types"
)

type RAGHandler struct {
	svc *service.RAGService
}

func NewRAGHandler(svc *service.RAGService) *RAGHandler {
	return &RAGHandler{svc: svc}
}

// HandleUpload extracts text from the uploaded file and ingests it.
func (h *RAGHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	text, err := model.ExtractText(data, fileHeader.Filename)
	if err != nil {
		return err
	}

	result, err := h.svc.Ingest(c.Context(), text, fileHeader.Filename)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":      "File uploaded successfully",
		"file_name":    result.DocName,
		"file_id":      result.DocID,
		"total_chunks": result.TotalChunks,
	})
}

// HandleQuery schedules background processing and returns the job id
// without waiting for the answer.
func (h *RAGHandler) HandleQuery(c *fiber.Ctx) error {
	var params types.QueryParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	id, err := h.svc.SubmitQuery(c.Context(), params.Query, params.TopK)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":     types.JobProcessing,
		"request_id": id,
	})
}

func (h *RAGHandler) HandleQueryResult(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return ErrInvalidID()
	}

	return c.JSON(h.svc.PollResult(id))
}

func (h *RAGHandler) HandleListFiles(c *fiber.Ctx) error {
	docs, err := h.svc.ListDocuments(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"files": docs})
}

func (h *RAGHandler) HandleDeleteFile(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("fileId"))
	if err != nil {
		return ErrInvalidID()
	}

	deleted, err := h.svc.DeleteDocument(c.Context(), docID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"file_id":        docID,
		"deleted_chunks": deleted,
	})
}

func (h *RAGHandler) HandleNewSession(c *fiber.Ctx) error {
	if err := h.svc.ResetSession(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "New session started, all data cleared"})
}

func (h *RAGHandler) HandleAllChats(c *fiber.Ctx) error {
	entries, err := h.svc.ListHistory(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"chats": entries})
}
