package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is a signed transaction built by the service, stored with the
// intermediate encodings it was signed over.
type Transaction struct {
	Id             string
	Signer         string
	Dest           string
	Amount         string
	Nonce          uint64
	SpecVersion    uint32
	Extensions     []string
	MetadataMode   string
	MetadataDigest string
	Call           string
	Extra          string
	Additional     string
	SignerPayload  string
	Extrinsic      string
	CreatedAt      int64
}

func NewTransaction(
	signer, dest, amount string, nonce uint64, specVersion uint32, extensions []string,
) *Transaction {
	return &Transaction{
		Id:          uuid.New().String(),
		Signer:      signer,
		Dest:        dest,
		Amount:      amount,
		Nonce:       nonce,
		SpecVersion: specVersion,
		Extensions:  extensions,
		CreatedAt:   time.Now().Unix(),
	}
}

// IsMetadataChecked reports whether the transaction commits to a metadata
// digest.
func (t *Transaction) IsMetadataChecked() bool {
	return t.MetadataDigest != ""
}
