package services

import (
	"streakly/internal/crypto"
	"streakly/internal/models"
)

// EncryptionService applies field-level encryption to domain models
type EncryptionService struct {
	sealer *crypto.Sealer
}

func NewEncryptionService(encryptionKey, blindIndexKey []byte) (*EncryptionService, error) {
	sealer, err := crypto.NewSealer(encryptionKey, blindIndexKey)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{sealer: sealer}, nil
}

// EncryptUser encrypts the email and sets its blind index
func (s *EncryptionService) EncryptUser(user *models.User) error {
	enc, err := s.sealer.Seal(user.Email)
	if err != nil {
		return err
	}
	user.EmailBlindIndex = s.sealer.BlindIndex(user.Email)
	user.Email = enc
	return nil
}

func (s *EncryptionService) DecryptUser(user *models.User) error {
	email, err := s.sealer.Open(user.Email)
	if err != nil {
		return err
	}
	user.Email = email
	return nil
}

// EncryptJournal encrypts the free-text fields of a journal entry
func (s *EncryptionService) EncryptJournal(j *models.Journal) error {
	entry, err := s.sealer.Seal(j.Entry)
	if err != nil {
		return err
	}
	tip, err := s.sealer.Seal(j.AITip)
	if err != nil {
		return err
	}
	j.Entry, j.AITip = entry, tip
	return nil
}

func (s *EncryptionService) DecryptJournal(j *models.Journal) error {
	entry, err := s.sealer.Open(j.Entry)
	if err != nil {
		return err
	}
	tip, err := s.sealer.Open(j.AITip)
	if err != nil {
		return err
	}
	j.Entry, j.AITip = entry, tip
	return nil
}

// EmailBlindIndex returns the lookup key for an email address
func (s *EncryptionService) EmailBlindIndex(email string) string {
	return s.sealer.BlindIndex(email)
}
