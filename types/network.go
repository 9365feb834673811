package types

// NetworkID is the chain identifier the wallet SDK reports, e.g. "1" for
// mainnet. Kept as a string because some providers report non-numeric IDs
// ("ganache").
type NetworkID string

// networkNames maps chain IDs to the human-readable names used to
// namespace stored records.
var networkNames = map[NetworkID]string{
	"1":       "mainnet",
	"2":       "morden",
	"3":       "ropsten",
	"4":       "rinkeby",
	"5":       "goerli",
	"42":      "kovan",
	"ganache": "ganache",
}

// Name returns the human-readable network name, or "" when the ID is not
// recognized. Records are never written under an unrecognized network.
func (id NetworkID) Name() string {
	return networkNames[id]
}

// Known reports whether the network ID maps to a named network.
func (id NetworkID) Known() bool {
	_, ok := networkNames[id]
	return ok
}

// IsTestnet reports whether the ID names a test network.
func (id NetworkID) IsTestnet() bool {
	return id.Known() && id != "1"
}

func (id NetworkID) String() string {
	return string(id)
}

// DefaultTokenContracts holds the MFT token contract per network ID. The
// token is only deployed on mainnet and ropsten; payments in MFT on other
// networks fail validation. Overridable through configuration.
var DefaultTokenContracts = map[NetworkID]string{
	"1": "0xDF2C7238198Ad8B389666574f2d8bc411A4b7428",
	"3": "0xA46f1563984209fe47f8236f8B01a03f03F957E4",
}
