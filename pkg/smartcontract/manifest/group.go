// Package manifest implements the contract manifest: the ABI,
// permission, and trust declarations a NEF file's deployment carries
// alongside it. ContractManagement's deploy and update check it with
// IsValid; System.Contract.Call does not check Permissions, and
// CanCall has no caller in the node.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/util"
)

// SignatureLen is the length of the ECDSA signature a Group carries.
const SignatureLen = 64

// Group ties a contract to a public key its deployer controls,
// proven by a signature over the contract's script hash; this is
// what ConditionGroup/ConditionCalledByGroup check membership in.
type Group struct {
	PublicKey *keys.PublicKey
	Signature []byte
}

type groupJSON struct {
	PublicKey string `json:"pubkey"`
	Signature string `json:"signature"`
}

// IsValid reports whether the group's signature verifies over h.
func (g *Group) IsValid(h util.Uint160) bool {
	return g.PublicKey.Verify(h.BytesBE(), g.Signature)
}

// MarshalJSON implements json.Marshaler.
func (g Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(groupJSON{
		PublicKey: hex.EncodeToString(g.PublicKey.Bytes()),
		Signature: hex.EncodeToString(g.Signature),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Group) UnmarshalJSON(data []byte) error {
	aux := new(groupJSON)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	pubBytes, err := hex.DecodeString(aux.PublicKey)
	if err != nil {
		return err
	}
	pub, err := keys.DecodeBytes(pubBytes, keys.Secp256r1)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(aux.Signature)
	if err != nil {
		return err
	}
	g.PublicKey = pub
	g.Signature = sig
	return nil
}

// Groups is a list of Group declarations.
type Groups []Group

// AreValid checks every group's signature against the contract hash
// and rejects duplicate public keys.
func (g Groups) AreValid(h util.Uint160) error {
	seen := make(map[string]bool, len(g))
	for i := range g {
		key := string(g[i].PublicKey.Bytes())
		if seen[key] {
			return errors.New("manifest: duplicate group public key")
		}
		seen[key] = true
		if !g[i].IsValid(h) {
			return fmt.Errorf("manifest: invalid group signature for key %s", key)
		}
	}
	return nil
}

// Contains reports whether any group uses the given public key.
func (g Groups) Contains(pub *keys.PublicKey) bool {
	target := pub.Bytes()
	for i := range g {
		if string(g[i].PublicKey.Bytes()) == string(target) {
			return true
		}
	}
	return false
}
