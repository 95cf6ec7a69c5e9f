package entitlement

import "errors"

// DeniedError — отказ движка доступа, возвращаемый сервисами как ошибка.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return "access denied: " + e.Decision.Reason()
}

// Check превращает решение в ошибку: nil для Allow, *DeniedError иначе.
func Check(d Decision) error {
	if d.Allowed() {
		return nil
	}
	return &DeniedError{Decision: d}
}

// AsDenied достает решение из цепочки err.
func AsDenied(err error) (Decision, bool) {
	var de *DeniedError
	if errors.As(err, &de) {
		return de.Decision, true
	}
	return "", false
}
