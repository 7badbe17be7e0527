package doctorservice

import "errors"

var (
	// ErrDoctorNotFound возвращается, когда врач не найден
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("doctorservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("doctorservice client: invalid response")

	// ErrServiceDegraded возвращается при применении graceful degradation
	// Указывает, что DoctorService недоступен и данные врача в ответ не попадут
	ErrServiceDegraded = errors.New("doctorservice unavailable: graceful degradation applied")
)
