package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/labtrack/labtrack-api/internal/models"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ExistsByRoleAndCode(ctx context.Context, role models.UserRole, code string) (bool, error)
	Deactivate(ctx context.Context, id string) error
}

// CreateUserRequest describes an account creation payload. Role-specific
// requiredness is decided by UserProvisioningPolicy, not by struct tags.
type CreateUserRequest struct {
	Role         models.UserRole `json:"role" validate:"required"`
	EmployeeCode string          `json:"employee_code"`
	StudentCode  string          `json:"student_code"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	YearLevel    string          `json:"year_level"`
	Section      string          `json:"section"`
	Gender       string          `json:"gender"`
}

// UserService provisions and lists accounts.
type UserService struct {
	repo      userRepository
	policy    UserProvisioningPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Create provisions a new account. The initial password is the role code
// per the provisioning policy; the code must be unique within the role.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported role")
	}

	fields := ProvisioningFields{
		EmployeeCode: req.EmployeeCode,
		StudentCode:  req.StudentCode,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		YearLevel:    req.YearLevel,
		Section:      req.Section,
		Gender:       req.Gender,
	}
	if err := s.policy.Validate(req.Role, fields); err != nil {
		return nil, err
	}

	code := s.policy.Code(req.Role, fields)
	exists, err := s.repo.ExistsByRoleAndCode(ctx, req.Role, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to check code uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "code already registered for role")
	}

	password, err := s.policy.DefaultPassword(req.Role, fields)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Code:         code,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Active:       true,
	}
	if req.YearLevel != "" {
		user.YearLevel = &req.YearLevel
	}
	if req.Section != "" {
		user.Section = &req.Section
	}
	if req.Gender != "" {
		user.Gender = &req.Gender
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create user")
	}

	s.logger.Info("user provisioned", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// List returns users with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Deactivate soft deletes an account.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to deactivate user")
	}
	return nil
}
