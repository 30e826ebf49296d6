package neartypes

import "testing"

func TestContractStorageKey(t *testing.T) {
	got := ContractStorageKey("contract.near", []byte("balance"))
	want := append([]byte{0x09}, append([]byte("contract.near"), append([]byte{','}, []byte("balance")...)...)...)
	if string(got) != string(want) {
		t.Fatalf("got %x want %x", got, want)
	}
}
