package domain

// Doctor краткая информация о враче из doctor-service
type Doctor struct {
	ID        int64
	FullName  string
	Specialty string
	IsActive  bool
}
