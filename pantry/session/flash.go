// session/flash.go
package session

const (
	flashCategoryKey = "_flash_category"
	flashMessageKey  = "_flash_message"
)

// AddFlash stores a one-time message for the next page view, replacing any
// pending one.
func AddFlash(s *Session, category, message string) {
	if s == nil {
		return
	}
	s.Set(flashCategoryKey, category)
	s.Set(flashMessageKey, message)
}

// PopFlash returns and clears the pending message. ok is false when there is
// none.
func PopFlash(s *Session) (category, message string, ok bool) {
	if s == nil {
		return "", "", false
	}
	message, ok = s.Get(flashMessageKey)
	if !ok {
		return "", "", false
	}
	category, _ = s.Get(flashCategoryKey)
	s.Delete(flashMessageKey)
	s.Delete(flashCategoryKey)
	return category, message, true
}
