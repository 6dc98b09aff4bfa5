package authinfra

import "golang.org/x/crypto/bcrypt"

// BcryptHasher 使用 bcrypt 檢查密碼；Cost 為 0 時使用 bcrypt.DefaultCost。
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Compare(hashed, plain string) bool {
	if hashed == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// HashPassword 供 seed 使用，產生 bcrypt 雜湊。
func HashPassword(plain string) (string, error) {
	return BcryptHasher{}.Hash(plain)
}
