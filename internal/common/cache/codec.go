package cache

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdInitErr error
)

func initZstd() {
	zstdEncoder, zstdInitErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if zstdInitErr != nil {
		return
	}
	zstdDecoder, zstdInitErr = zstd.NewReader(nil)
}

// Compress zstd-compresses data for storage as a string value.
func Compress(data []byte) (string, error) {
	zstdOnce.Do(initZstd)
	if zstdInitErr != nil {
		return "", zstdInitErr
	}
	return base64.StdEncoding.EncodeToString(zstdEncoder.EncodeAll(data, nil)), nil
}

// Decompress reverses Compress.
func Decompress(value string) ([]byte, error) {
	zstdOnce.Do(initZstd)
	if zstdInitErr != nil {
		return nil, zstdInitErr
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cached value failed: %w", err)
	}
	out, err := zstdDecoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress cached value failed: %w", err)
	}
	return out, nil
}

// MarshalCompressed returns a GetWithCached marshal func storing v as compressed JSON.
func MarshalCompressed[T any]() func(T) (string, error) {
	return func(v T) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return Compress(data)
	}
}

// UnmarshalCompressed is the inverse of MarshalCompressed.
func UnmarshalCompressed[T any]() func(string) (T, error) {
	return func(value string) (T, error) {
		var out T
		data, err := Decompress(value)
		if err != nil {
			return out, err
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return out, err
		}
		return out, nil
	}
}
