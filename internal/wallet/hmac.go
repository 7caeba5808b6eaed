package wallet

import (
	"crypto/hmac"

	"github.com/minio/sha256-simd"
)

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
