package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/metrics"
	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/notifications"
	"github.com/anjiri1684/talent_booking/storage"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var allowedDocumentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

type DocumentUpload struct {
	Type     models.DocumentType
	FileName string
	Data     []byte
}

type KycService struct {
	db       *gorm.DB
	store    DocumentStore
	notifier Notifier
	cfg      configs.KycConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewKycService(db *gorm.DB, store DocumentStore, notifier Notifier, cfg configs.KycConfig, logger *zerolog.Logger) *KycService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &KycService{db: db, store: store, notifier: notifier, cfg: cfg, logger: logger, now: utcNow}
}

func (s *KycService) checkFile(d DocumentUpload) (string, error) {
	field := string(d.Type)
	if len(d.Data) == 0 {
		return "", workflow.Invalid(field, "file is empty")
	}
	if int64(len(d.Data)) > s.cfg.MaxDocumentBytes {
		return "", workflow.Invalid(field, "file exceeds %d bytes", s.cfg.MaxDocumentBytes)
	}
	mt := mimetype.Detect(d.Data)
	if !mimetype.EqualsAny(mt.String(), allowedDocumentTypes...) {
		return "", workflow.Invalid(field, "unsupported file type %s", mt.String())
	}
	return mt.String(), nil
}

// Submit stores the caller's identity documents and moves their verification status to PENDING.
// The status is claimed before anything is uploaded, so a concurrent submission fails without
// uploading. If an upload or the insert fails, the uploaded objects are deleted and the previous
// status is restored.
func (s *KycService) Submit(ctx context.Context, actor workflow.Actor, docs []DocumentUpload) (*models.KycSubmission, error) {
	types := make([]models.DocumentType, 0, len(docs))
	for _, d := range docs {
		types = append(types, d.Type)
	}
	if err := workflow.CheckDocuments(types); err != nil {
		return nil, err
	}

	contentTypes := make([]string, len(docs))
	for i, d := range docs {
		ct, err := s.checkFile(d)
		if err != nil {
			return nil, err
		}
		contentTypes[i] = ct
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", actor.ID).Error; err != nil {
		return nil, notFound(err, "user", actor.ID)
	}
	dec, err := workflow.DecideKyc(workflow.KycRequest{Current: user.VerificationStatus, Action: workflow.KycSubmit, Actor: actor, Subject: user.ID})
	if err != nil {
		return nil, err
	}
	if err := setVerificationStatus(db, user.ID, dec, workflow.KycSubmit); err != nil {
		return nil, err
	}

	submission := models.KycSubmission{ID: uuid.New(), UserID: user.ID, Status: models.KycPending}
	var uploaded []*storage.Object
	for i, d := range docs {
		name := fmt.Sprintf("%s/%s_%s", user.ID, submission.ID, d.Type)
		obj, err := s.store.Upload(ctx, name, bytes.NewReader(d.Data))
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", user.ID.String()).Str("document", string(d.Type)).Msg("document upload failed")
			s.abandonSubmission(ctx, user.ID, dec, uploaded)
			return nil, &workflow.ExternalProviderError{Provider: "cloudinary", Op: "upload", Retryable: true, Err: err}
		}
		uploaded = append(uploaded, obj)
		submission.Documents = append(submission.Documents, models.KycDocument{
			Position:    i,
			Type:        d.Type,
			FileName:    cleanFileName(d.FileName, d.Type),
			ContentType: contentTypes[i],
			URL:         obj.URL,
			PublicID:    obj.PublicID,
		})
	}

	if err := db.Create(&submission).Error; err != nil {
		s.abandonSubmission(ctx, user.ID, dec, uploaded)
		return nil, fmt.Errorf("save kyc submission: %w", err)
	}
	metrics.IncTransition("kyc", string(dec.From), string(dec.To))
	s.logger.Info().Str("user_id", user.ID.String()).Str("submission_id", submission.ID.String()).Msg("kyc submitted")
	send(s.notifier, &user, notifications.KycUpdate(user.FullName, string(dec.To), ""))
	return &submission, nil
}

// abandonSubmission undoes a claimed submission. It runs even when ctx was cancelled.
func (s *KycService) abandonSubmission(ctx context.Context, userID uuid.UUID, dec workflow.KycDecision, uploaded []*storage.Object) {
	ctx = context.WithoutCancel(ctx)
	for _, obj := range uploaded {
		if err := s.store.Delete(ctx, obj); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID.String()).Str("public_id", obj.PublicID).Msg("orphaned kyc document")
		}
	}
	revert := workflow.KycDecision{From: dec.To, To: dec.From}
	if err := setVerificationStatus(s.db.WithContext(ctx), userID, revert, workflow.KycSubmit); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("could not restore verification status")
	}
}

// setVerificationStatus is casStatus for the user's verification_status column.
func setVerificationStatus(tx *gorm.DB, userID uuid.UUID, dec workflow.KycDecision, action workflow.KycAction) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND verification_status = ?", userID, dec.From).
		Update("verification_status", dec.To)
	if res.Error != nil {
		return fmt.Errorf("update verification status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &workflow.InvalidTransitionError{
			Entity: "kyc", From: string(dec.From), To: string(dec.To), Action: string(action),
			Reason: "verification status changed concurrently",
		}
	}
	return nil
}

type KycStatusView struct {
	Status     models.KycStatus      `json:"verification_status"`
	Submission *models.KycSubmission `json:"submission,omitempty"`
}

func (s *KycService) Status(ctx context.Context, actor workflow.Actor) (*KycStatusView, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", actor.ID).Error; err != nil {
		return nil, notFound(err, "user", actor.ID)
	}
	view := &KycStatusView{Status: user.VerificationStatus}

	var sub models.KycSubmission
	err := db.Preload("Documents", func(q *gorm.DB) *gorm.DB { return q.Order("position") }).
		Where("user_id = ?", user.ID).Order("created_at DESC").First(&sub).Error
	switch {
	case err == nil:
		view.Submission = &sub
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return view, nil
}

func (s *KycService) ListPending(ctx context.Context, actor workflow.Actor) ([]models.KycSubmission, error) {
	if !actor.IsAdmin() {
		return nil, &workflow.ForbiddenError{Action: "list KYC submissions", Reason: "admin only"}
	}
	var subs []models.KycSubmission
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Documents", func(q *gorm.DB) *gorm.DB { return q.Order("position") }).
		Where("status = ?", models.KycPending).
		Order("created_at").
		Find(&subs).Error
	return subs, err
}

// Review approves or rejects a pending submission and updates the user's verification status with it.
func (s *KycService) Review(ctx context.Context, actor workflow.Actor, submissionID uuid.UUID, approve bool, reason string) (*models.KycSubmission, error) {
	action := workflow.KycReject
	if approve {
		action = workflow.KycApprove
	}
	db := s.db.WithContext(ctx)

	var sub models.KycSubmission
	if err := db.Preload("User").First(&sub, "id = ?", submissionID).Error; err != nil {
		return nil, notFound(err, "kyc submission", submissionID)
	}
	reason = strings.TrimSpace(reason)
	dec, err := workflow.DecideKyc(workflow.KycRequest{Current: sub.Status, Action: action, Actor: actor, Subject: sub.UserID, Reason: reason})
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"reviewed_by_id": actor.ID, "reviewed_at": now}
		if !approve {
			updates["rejection_reason"] = reason
		}
		if err := casStatus(tx, &models.KycSubmission{}, "kyc", sub.ID, string(dec.From), string(dec.To), updates); err != nil {
			return err
		}
		return setVerificationStatus(tx, sub.UserID, dec, action)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncTransition("kyc", string(dec.From), string(dec.To))

	var reviewed models.KycSubmission
	if err := db.Preload("User").Preload("Documents").First(&reviewed, "id = ?", sub.ID).Error; err != nil {
		return nil, notFound(err, "kyc submission", sub.ID)
	}
	s.logger.Info().Str("submission_id", sub.ID.String()).Str("decision", string(action)).Msg("kyc reviewed")
	if reviewed.User != nil {
		send(s.notifier, reviewed.User, notifications.KycUpdate(reviewed.User.FullName, string(dec.To), reason))
	}
	return &reviewed, nil
}

func cleanFileName(name string, t models.DocumentType) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return string(t)
	}
	// keep the tail, which carries the extension, without splitting a rune
	for len(name) > 255 {
		_, size := utf8.DecodeRuneInString(name)
		name = name[size:]
	}
	return name
}
