package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/services"
	"github.com/gofiber/fiber/v2"
)

type ReviewKycRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string `json:"reason" validate:"max=2000"`
}

// SubmitKyc reads one multipart file per document type. Absent optional files are skipped;
// the service reports missing required ones.
func (h *Handler) SubmitKyc(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}

	var docs []services.DocumentUpload
	for _, t := range models.DocumentTypes {
		fh, err := c.FormFile(string(t))
		if err != nil {
			continue
		}
		data, err := h.readUpload(fh)
		if err != nil {
			return h.fail(c, err)
		}
		docs = append(docs, services.DocumentUpload{Type: t, FileName: fh.Filename, Data: data})
	}

	sub, err := h.Kyc.Submit(c.UserContext(), a, docs)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// readUpload reads at most one byte past the limit so oversize files are still rejected by size.
func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.MaxDocumentBytes > 0 {
		r = io.LimitReader(f, h.MaxDocumentBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

func (h *Handler) GetKycStatus(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := h.Kyc.Status(c.UserContext(), a)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *Handler) ListPendingKyc(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	subs, err := h.Kyc.ListPending(c.UserContext(), a)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"submissions": subs})
}

func (h *Handler) ReviewKyc(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req ReviewKycRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	sub, err := h.Kyc.Review(c.UserContext(), a, id, req.Decision == "approve", req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sub)
}
