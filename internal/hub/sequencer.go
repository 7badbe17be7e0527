package hub

import "sync"

// Sequencer упорядочивает изменения расписания одного врача внутри процесса.
// Запись держит блокировку врача от начала транзакции до публикации события,
// поэтому подписчики получают события в порядке фиксации.
type Sequencer struct {
	mu    sync.Mutex
	locks map[int64]*doctorLock
}

type doctorLock struct {
	mu   sync.Mutex
	refs int
}

// NewSequencer создает пустой набор блокировок
func NewSequencer() *Sequencer {
	return &Sequencer{locks: make(map[int64]*doctorLock)}
}

// Lock захватывает блокировку врача и возвращает функцию освобождения.
// Блокировки разных врачей независимы.
func (s *Sequencer) Lock(doctorID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[doctorID]
	if !ok {
		l = &doctorLock{}
		s.locks[doctorID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			s.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, doctorID)
			}
			s.mu.Unlock()
		})
	}
}

// held возвращает число врачей, по которым есть захваченные или ожидаемые блокировки
func (s *Sequencer) held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
