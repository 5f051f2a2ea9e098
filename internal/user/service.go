package user

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/delivery"
)

// ErrNotFound is returned by repositories for a user without profile.
var ErrNotFound = errors.New("user: profile not found")

// Profile is the storefront document kept per user.
type Profile struct {
	UserID      string             `json:"userId"`
	Email       string             `json:"email"`
	DisplayName string             `json:"displayName"`
	PhotoURL    string             `json:"photoUrl,omitempty"`
	PhoneNumber string             `json:"phoneNumber,omitempty"`
	Role        string             `json:"role"`
	Addresses   []delivery.Address `json:"addresses"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// DefaultAddress returns the address flagged as default, or the first one.
func (p Profile) DefaultAddress() (delivery.Address, bool) {
	for _, a := range p.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	if len(p.Addresses) > 0 {
		return p.Addresses[0], true
	}
	return delivery.Address{}, false
}

// Update is a partial profile change. Nil fields are left alone.
type Update struct {
	DisplayName *string
	PhotoURL    *string
	PhoneNumber *string
	Addresses   *[]delivery.Address
}

// Repository stores profiles keyed by user id.
type Repository interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Upsert(ctx context.Context, p Profile) (Profile, error)
}

// Service manages profiles. A user without a stored profile gets one
// derived from the identity.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// Get returns the profile of who.
func (s *Service) Get(ctx context.Context, who common.Identity) (Profile, error) {
	if strings.TrimSpace(who.UserID) == "" {
		return Profile{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, nil)
	}
	p, err := s.repo.Get(ctx, who.UserID)
	if errors.Is(err, ErrNotFound) {
		return fromIdentity(who), nil
	}
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Update applies u to the profile of who and stores it.
func (s *Service) Update(ctx context.Context, who common.Identity, u Update) (Profile, error) {
	p, err := s.Get(ctx, who)
	if err != nil {
		return Profile{}, err
	}
	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		if name == "" {
			return Profile{}, invalid("displayName", "display name cannot be empty")
		}
		p.DisplayName = name
	}
	if u.PhotoURL != nil {
		p.PhotoURL = strings.TrimSpace(*u.PhotoURL)
	}
	if u.PhoneNumber != nil {
		p.PhoneNumber = strings.TrimSpace(*u.PhoneNumber)
	}
	if u.Addresses != nil {
		p.Addresses = normaliseAddresses(*u.Addresses)
	}
	if p.Email == "" {
		p.Email = who.Email
	}
	if p.Role == "" {
		p.Role = roleOf(who)
	}
	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return s.repo.Upsert(ctx, p)
}

// normaliseAddresses assigns missing ids and keeps a single default.
func normaliseAddresses(in []delivery.Address) []delivery.Address {
	out := make([]delivery.Address, len(in))
	seenDefault := false
	for i, a := range in {
		if strings.TrimSpace(a.ID) == "" {
			a.ID = uuid.NewString()
		}
		if a.IsDefault {
			if seenDefault {
				a.IsDefault = false
			}
			seenDefault = true
		}
		out[i] = a
	}
	return out
}

func fromIdentity(who common.Identity) Profile {
	return Profile{
		UserID:      who.UserID,
		Email:       who.Email,
		DisplayName: who.Name,
		Role:        roleOf(who),
		Addresses:   []delivery.Address{},
	}
}

func roleOf(who common.Identity) string {
	if who.Role == "" {
		return "customer"
	}
	return who.Role
}

func invalid(field, message string) error {
	return common.InvalidField(field, message)
}
