package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	clientSecretLength = 60
	sharedSecretLength = 32
	secretAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// SecretGenerator выдает секреты взамен скрытых при выгрузке
type SecretGenerator interface {
	// ClientSecret секрет клиента API
	ClientSecret() (string, error)
	// SharedSecret общий ключ подписи вебхуков, интеграционных событий и отправителей сообщений
	SharedSecret() (string, error)
}

// RandomSecrets криптографически случайные буквенно-цифровые секреты
type RandomSecrets struct{}

func (RandomSecrets) ClientSecret() (string, error) { return randomString(clientSecretLength) }

func (RandomSecrets) SharedSecret() (string, error) { return randomString(sharedSecretLength) }

func randomString(n int) (string, error) {
	limit := big.NewInt(int64(len(secretAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate secret: %w", err)
		}
		buf[i] = secretAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
