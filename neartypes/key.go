package neartypes

// ContractDataColumn is the trie column id NEAR uses when storing a
// contract's key-value data under an account.
const ContractDataColumn byte = 0x09

// AccountDataSeparator separates the account id from the caller-supplied key
// prefix in the derived trie key.
const AccountDataSeparator byte = ','

// ContractStorageKey derives the raw trie key for a contract's storage
// prefix, matching full-node behaviour byte-for-byte (spec 6):
// 0x09 || UTF8(account_id) || ',' || prefix.
func ContractStorageKey(accountID string, prefix []byte) []byte {
	key := make([]byte, 0, 1+len(accountID)+1+len(prefix))
	key = append(key, ContractDataColumn)
	key = append(key, []byte(accountID)...)
	key = append(key, AccountDataSeparator)
	key = append(key, prefix...)
	return key
}
