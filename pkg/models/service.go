package models

// Service is a catalog entry offered by a provider. MainProvider is a weak
// reference to a ProviderBundle by id; referential integrity is checked at
// write time by the validation layer, not here.
type Service struct {
	ID           string `json:"id"`
	Name         string `json:"name"          validate:"required"`
	MainProvider string `json:"main_provider" validate:"required"`
}

func (s *Service) GetID() string {
	return s.ID
}
