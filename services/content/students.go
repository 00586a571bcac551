package content

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/accounts"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
)

var ErrStudentNotFound = apperr.NotFound("student not found")

// Provisioner creates accounts and issues their first login token inside a
// caller's transaction, then sends the welcome email after commit.
type Provisioner interface {
	ProvisionTx(ctx context.Context, tx *gorm.DB, input accounts.NewAccount) (*accounts.Provisioned, error)
	SendWelcome(p *accounts.Provisioned)
}

type Enrollment struct {
	Email      string
	FirstName  string
	LastName   string
	Program    string
	CohortYear int
	MentorID   *uint
}

type EnrolledStudent struct {
	Student     *Student
	Provisioned *accounts.Provisioned
}

type StudentService struct {
	db          *gorm.DB
	provisioner Provisioner
	logger      *logging.Service
}

func NewStudentService(db *gorm.DB, provisioner Provisioner, logger *logging.Service) *StudentService {
	return &StudentService{db: db, provisioner: provisioner, logger: logger.Named("students")}
}

// Enroll provisions a student account and its profile in one transaction.
// The welcome email is sent only after commit.
func (s *StudentService) Enroll(ctx context.Context, input Enrollment) (*EnrolledStudent, error) {
	if input.MentorID != nil {
		var mentor auth.User
		if err := s.db.WithContext(ctx).First(&mentor, *input.MentorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Field("mentorId", "mentor does not exist")
			}
			return nil, fmt.Errorf("failed to load mentor: %w", err)
		}
		if !mentor.HasRole(auth.RoleMentor, auth.RoleStaff, auth.RoleAdmin) {
			return nil, apperr.Field("mentorId", "user is not a mentor")
		}
	}

	var (
		provisioned *accounts.Provisioned
		student     *Student
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		provisioned, err = s.provisioner.ProvisionTx(ctx, tx, accounts.NewAccount{
			Email:     input.Email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Role:      auth.RoleStudent,
		})
		if err != nil {
			return err
		}

		student = &Student{
			UserID:     provisioned.User.ID,
			Program:    input.Program,
			CohortYear: input.CohortYear,
			Status:     StatusEnrolled,
			MentorID:   input.MentorID,
		}
		if err := tx.Create(student).Error; err != nil {
			s.logger.Error("failed to create student profile", zap.Error(err), zap.String("email", provisioned.User.Email))
			return fmt.Errorf("failed to create student profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.provisioner.SendWelcome(provisioned)
	s.logger.Info("student enrolled", zap.Uint("student_id", student.ID), zap.Uint("user_id", student.UserID))
	return &EnrolledStudent{Student: student, Provisioned: provisioned}, nil
}

// List returns students visible to viewer. Mentors see their own mentees.
func (s *StudentService) List(ctx context.Context, viewer *auth.User, status StudentStatus) ([]Student, error) {
	query := s.db.WithContext(ctx).Order("id")
	if viewer.Role == auth.RoleMentor {
		query = query.Where("mentor_id = ?", viewer.ID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var students []Student
	if err := query.Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

func (s *StudentService) Get(ctx context.Context, viewer *auth.User, id uint) (*Student, error) {
	var student Student
	if err := s.db.WithContext(ctx).First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if viewer.Role == auth.RoleMentor && (student.MentorID == nil || *student.MentorID != viewer.ID) {
		return nil, ErrStudentNotFound
	}
	return &student, nil
}
