package contact

import (
	"context"
	"time"

	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
)

const defaultBirthdayWindowDays = 7

// ContactService is thin data-access glue over the contact repository;
// all rows are scoped to their owning user
type ContactService struct {
	contactRepo repository.ContactRepo
}

func NewService(contactRepo repository.ContactRepo) *ContactService {
	return &ContactService{contactRepo: contactRepo}
}

func (s *ContactService) Create(ctx context.Context, user models.User, arg repository.ContactParams) (models.Contact, error) {
	return s.contactRepo.CreateContact(ctx, user.ID, arg)
}

func (s *ContactService) Get(ctx context.Context, user models.User, contactID int64) (models.Contact, error) {
	return s.contactRepo.GetContact(ctx, user.ID, contactID)
}

func (s *ContactService) List(ctx context.Context, user models.User, search string, limit int, offset int) ([]models.Contact, error) {
	return s.contactRepo.ListContacts(ctx, repository.ListContactsParams{
		UserID: user.ID,
		Search: search,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *ContactService) Update(ctx context.Context, user models.User, contactID int64, arg repository.ContactParams) (models.Contact, error) {
	return s.contactRepo.UpdateContact(ctx, user.ID, contactID, arg)
}

func (s *ContactService) Delete(ctx context.Context, user models.User, contactID int64) error {
	return s.contactRepo.DeleteContact(ctx, user.ID, contactID)
}

func (s *ContactService) UpcomingBirthdays(ctx context.Context, user models.User, daysAhead int) ([]models.Contact, error) {
	if daysAhead <= 0 {
		daysAhead = defaultBirthdayWindowDays
	}

	return s.contactRepo.UpcomingBirthdays(ctx, user.ID, time.Now(), daysAhead)
}
