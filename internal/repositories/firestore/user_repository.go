package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/jewelry-storefront/api/internal/domain"
	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
	"github.com/jewelry-storefront/api/internal/platform/textutil"
)

const (
	userCollection       = "users"
	userEmailsCollection = "user_emails"
)

type userDocument struct {
	Name          string    `firestore:"name"`
	Surname       string    `firestore:"surname"`
	Email         string    `firestore:"email"`
	Phone         string    `firestore:"phone,omitempty"`
	Gender        string    `firestore:"gender,omitempty"`
	BirthDate     string    `firestore:"birthDate,omitempty"`
	Address       string    `firestore:"address,omitempty"`
	IsAdmin       bool      `firestore:"isAdmin"`
	PasswordHash  string    `firestore:"passwordHash,omitempty"`
	GoogleSubject string    `firestore:"googleSubject,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// emailClaim reserves an address so two accounts cannot share it.
type emailClaim struct {
	UserID string `firestore:"userId"`
}

// UserRepository persists accounts. Email uniqueness is enforced with a
// claim document per address written in the same transaction as the user.
type UserRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[userDocument]
	emails   *pfirestore.Collection[emailClaim]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		provider: provider,
		base:     pfirestore.NewCollection[userDocument](provider, userCollection),
		emails:   pfirestore.NewCollection[emailClaim](provider, userEmailsCollection),
	}, nil
}

func (r *UserRepository) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	if strings.TrimSpace(user.ID) == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}
	user.Email = textutil.NormalizeEmail(user.Email)
	if user.Email == "" {
		return domain.User{}, errors.New("user repository: email is required")
	}
	userRef, err := r.base.Doc(ctx, user.ID)
	if err != nil {
		return domain.User{}, err
	}
	claimRef, err := r.emails.Doc(ctx, user.Email)
	if err != nil {
		return domain.User{}, err
	}

	doc := fromDomainUser(user)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(claimRef); err == nil {
			return pfirestore.Conflict("users.insert", "email already registered")
		} else if status.Code(err) != codes.NotFound {
			return err
		}
		if err := tx.Create(claimRef, emailClaim{UserID: user.ID}); err != nil {
			return err
		}
		return tx.Create(userRef, doc)
	})
	if err != nil {
		return domain.User{}, pfirestore.WrapError("users.insert", err)
	}
	user.CreatedAt = doc.CreatedAt
	user.UpdatedAt = doc.UpdatedAt
	return user, nil
}

// Update rewrites profile fields. Email changes are not supported here.
func (r *UserRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	doc := fromDomainUser(user)
	_, err := r.base.Update(ctx, user.ID, []firestore.Update{
		{Path: "name", Value: doc.Name},
		{Path: "surname", Value: doc.Surname},
		{Path: "phone", Value: doc.Phone},
		{Path: "gender", Value: doc.Gender},
		{Path: "birthDate", Value: doc.BirthDate},
		{Path: "address", Value: doc.Address},
		{Path: "isAdmin", Value: doc.IsAdmin},
		{Path: "passwordHash", Value: doc.PasswordHash},
		{Path: "googleSubject", Value: doc.GoogleSubject},
		{Path: "updatedAt", Value: doc.UpdatedAt},
	}, firestore.Exists)
	if err != nil {
		return domain.User{}, err
	}
	user.UpdatedAt = doc.UpdatedAt
	return user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	email = textutil.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, errors.New("user repository: email is required")
	}
	claim, err := r.emails.Get(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	return r.FindByID(ctx, claim.Data.UserID)
}

func fromDomainUser(u domain.User) userDocument {
	now := time.Now().UTC()
	created := u.CreatedAt.UTC()
	if created.IsZero() {
		created = now
	}
	return userDocument{
		Name:          strings.TrimSpace(u.Name),
		Surname:       strings.TrimSpace(u.Surname),
		Email:         textutil.NormalizeEmail(u.Email),
		Phone:         strings.TrimSpace(u.Phone),
		Gender:        strings.TrimSpace(u.Gender),
		BirthDate:     strings.TrimSpace(u.BirthDate),
		Address:       strings.TrimSpace(u.Address),
		IsAdmin:       u.IsAdmin,
		PasswordHash:  u.PasswordHash,
		GoogleSubject: u.GoogleSubject,
		CreatedAt:     created,
		UpdatedAt:     now,
	}
}

func (d userDocument) toDomain(id string) domain.User {
	return domain.User{
		ID:            id,
		Name:          d.Name,
		Surname:       d.Surname,
		Email:         d.Email,
		Phone:         d.Phone,
		Gender:        d.Gender,
		BirthDate:     d.BirthDate,
		Address:       d.Address,
		IsAdmin:       d.IsAdmin,
		PasswordHash:  d.PasswordHash,
		GoogleSubject: d.GoogleSubject,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
