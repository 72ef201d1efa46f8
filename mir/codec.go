package mir

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so that equal programs always
// serialize to identical bytes. Cache keys depend on this.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("mir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Program to canonical CBOR.
func Marshal(p *Program) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// Unmarshal deserializes a Program from CBOR bytes.
func Unmarshal(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("mir: unmarshal program: %w", err)
	}
	for i, b := range p.Bundles {
		if b == nil {
			return nil, fmt.Errorf("mir: bundle %d is nil", i)
		}
		for j, ins := range b.Instructions {
			if ins == nil {
				return nil, fmt.Errorf("mir: bundle %d instruction %d is nil", i, j)
			}
		}
	}
	return &p, nil
}
