package account

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

var (
	// errors
	ErrNotFound       = errors.New("account not found")
	ErrUsernameExists = errors.New("an account with this username already exists")
)

type (
	Repository interface {
		// CreateAccount fails with ErrUsernameExists when the username is taken.
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		// GetAccountByID and GetAccountByUsername fail with ErrNotFound.
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByUsername(ctx context.Context, username string) (Account, error)
		UsernameExists(ctx context.Context, username string) (bool, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, username string) error
		// Signup validates na and creates the account.
		Signup(ctx context.Context, na NewAccount) (Account, error)
		// Authenticate fails with a core AuthError whatever the reason, so callers cannot enumerate usernames.
		Authenticate(ctx context.Context, username, password string) (Account, error)
		GetByID(ctx context.Context, id string) (Account, error)
		GetByUsername(ctx context.Context, username string) (Account, error)
	}

	service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) Service {
	return &service{
		repo:       repo,
		validate:   validate,
		translator: translator,
	}
}

func usernameTaken() error {
	return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
}

func (svc *service) CheckUniqueness(ctx context.Context, username string) error {
	exists, err := svc.repo.UsernameExists(ctx, username)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if exists {
		return usernameTaken()
	}
	return nil
}

func (svc *service) Signup(ctx context.Context, na NewAccount) (Account, error) {
	if err := na.Validate(ctx, svc.validate, svc); err != nil {
		return Account{}, core.TranslateValidationErrors(err, svc.translator)
	}

	acc := Account{
		ID:        uuid.New().String(),
		Username:  na.Username,
		Role:      na.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return Account{}, usernameTaken()
		}
		return Account{}, errors.Wrap(err, "creating account")
	}
	return acc, nil
}

func (svc *service) Authenticate(ctx context.Context, username, password string) (Account, error) {
	acc, err := svc.GetByUsername(ctx, username)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, core.NewAuthError("invalid credentials")
		}
		return Account{}, errors.Wrap(err, "finding account by username")
	}
	if err = acc.CheckPassword(password); err != nil {
		return Account{}, core.NewAuthError("invalid credentials")
	}
	return acc, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *service) GetByUsername(ctx context.Context, username string) (Account, error) {
	return svc.repo.GetAccountByUsername(ctx, core.CleanString(username, true /* lower */))
}
