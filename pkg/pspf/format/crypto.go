package format

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

// KeyPair is an Ed25519 signing keypair used to seal the index block.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// KeysFromSeed deterministically derives a keypair from an arbitrary seed
// string by hash-expanding it to 32 bytes with SHA-256 and feeding that into
// Ed25519's key derivation. Two builds with the same seed always yield the
// same keypair, which is what makes deterministic builds (§4.7) possible.
func KeysFromSeed(seed string) *KeyPair {
	sum := sha256.Sum256([]byte(seed))
	priv := ed25519.NewKeyFromSeed(sum[:])
	return &KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}
}

// KeysFromBytes wraps an explicit 32-byte private seed and derives the
// matching public key.
func KeysFromBytes(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed is %d bytes, want %d", pspferrors.ErrKeyWrongSize, len(seed), ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
}

// EphemeralKeys generates a random keypair, used when the builder has no
// other key configuration (mode 4 in §4.6's precedence order).
func EphemeralKeys() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrNoKeyMaterial, err)
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

// LoadKeysFromDir loads flavor-private.key/flavor-public.key from dir,
// accepting either a PEM-wrapped PKCS8 private key or 32 raw seed bytes.
func LoadKeysFromDir(dir string) (*KeyPair, error) {
	privPath := filepath.Join(dir, "flavor-private.key")
	pubPath := filepath.Join(dir, "flavor-public.key")

	privBytes, err := os.ReadFile(privPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", pspferrors.ErrReadFailed, privPath, err)
	}
	priv, err := parsePrivateKey(privBytes)
	if err != nil {
		return nil, err
	}

	kp := &KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}

	if pubBytes, err := os.ReadFile(pubPath); err == nil {
		if pub, err := parsePublicKey(pubBytes); err == nil {
			if !pub.Equal(kp.Public) {
				return nil, fmt.Errorf("%w: public key file does not match private key", pspferrors.ErrKeyWrongType)
			}
		}
	}

	return kp, nil
}

func parsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pspferrors.ErrKeyWrongType, err)
		}
		ed, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PEM key is not Ed25519", pspferrors.ErrKeyWrongType)
		}
		return ed, nil
	}
	if len(data) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(data), nil
	}
	if len(data) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(data), nil
	}
	return nil, fmt.Errorf("%w: raw private key is %d bytes", pspferrors.ErrKeyWrongSize, len(data))
}

func parsePublicKey(data []byte) (ed25519.PublicKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pspferrors.ErrKeyWrongType, err)
		}
		ed, ok := key.(ed25519.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: PEM key is not Ed25519", pspferrors.ErrKeyWrongType)
		}
		return ed, nil
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: raw public key is %d bytes", pspferrors.ErrKeyWrongSize, len(data))
	}
	return ed25519.PublicKey(data), nil
}

// WritePrivateKeyFile persists the private key with owner-only permissions
// (§6.3): raw 32-byte seed, not PEM, to match the loader's fast path.
func WritePrivateKeyFile(path string, kp *KeyPair) error {
	seed := kp.Private.Seed()
	if err := os.WriteFile(path, seed, 0o600); err != nil {
		return fmt.Errorf("%w: %v", pspferrors.ErrWriteFailed, err)
	}
	return nil
}

// WritePublicKeyFile persists the public key world-readable (§6.3).
func WritePublicKeyFile(path string, kp *KeyPair) error {
	if err := os.WriteFile(path, kp.Public, 0o644); err != nil {
		return fmt.Errorf("%w: %v", pspferrors.ErrWriteFailed, err)
	}
	return nil
}

// Sign seals idx in place: computes the Ed25519 signature over the index
// with the signature region zeroed and stores it in idx.Signature. Sign does
// not compute index_crc32; Pack does, over the same zeroed-signature view
// (§4.6).
func Sign(idx *Index, kp *KeyPair) {
	copy(idx.PublicKey[:], kp.Public)
	idx.Signature = [64]byte{}
	unsigned := idx.PackUnsigned()
	sig := ed25519.Sign(kp.Private, unsigned[14:IndexSize])
	copy(idx.Signature[:], sig)
}
