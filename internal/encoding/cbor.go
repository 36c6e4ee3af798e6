package encoding

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Core deterministic encoding keeps byte-identical output for equal documents
var cborEnc, _ = cbor.CoreDetEncOptions().EncMode()

// MarshalCBOR encodes data to CBOR format
func MarshalCBOR(v interface{}) ([]byte, error) {
	return cborEnc.Marshal(v)
}

// UnmarshalCBOR decodes CBOR data
func UnmarshalCBOR(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

// ReadCBOR decodes a CBOR stream of documents
func ReadCBOR(r io.Reader) ([]Document, error) {
	var docs []Document
	dec := cbor.NewDecoder(r)
	for {
		var d Document
		if err := dec.Decode(&d); err != nil {
			if err == io.EOF {
				return docs, nil
			}
			return nil, err
		}
		docs = append(docs, d)
	}
}
