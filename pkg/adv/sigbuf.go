package adv

// Domain separation prefixes of the signed buffers.
var (
	AccountSignaturePrefix       = []byte{6, 0}
	HostedAccountSignaturePrefix = []byte{6, 5}
	DeviceSignaturePrefix        = []byte{6, 1}
	HostedHMACPrefix             = []byte{6, 5}
)

// BuildBuffer returns prefix followed by each part, without separator, length or padding.
// The returned slice never aliases its arguments.
func BuildBuffer(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	rv := make([]byte, 0, size)
	rv = append(rv, prefix...)
	for _, part := range parts {
		rv = append(rv, part...)
	}

	return rv
}

// AccountSignaturePrefixFor returns the account signature prefix selected by deviceType.
func AccountSignaturePrefixFor(deviceType DeviceType) []byte {
	if DeviceHosted == deviceType {
		return HostedAccountSignaturePrefix
	}
	return AccountSignaturePrefix
}

// HMACPrefixFor returns the HMAC prefix selected by accountType, empty for AccountDefault.
func HMACPrefixFor(accountType AccountType) []byte {
	if AccountHosted == accountType {
		return HostedHMACPrefix
	}
	return nil
}

// HMACMessage returns the buffer authenticated by the PairingRecordHMAC HMAC.
func HMACMessage(details []byte, accountType AccountType) []byte {
	return BuildBuffer(HMACPrefixFor(accountType), details)
}

// AccountSignatureMessage returns the buffer signed by the primary device account key.
// body is the raw serialized DeviceIdentityBody, devicePub the companion identity public key.
func AccountSignatureMessage(body, devicePub []byte, deviceType DeviceType) []byte {
	return BuildBuffer(AccountSignaturePrefixFor(deviceType), body, devicePub)
}

// DeviceSignatureMessage returns the buffer co-signed by the companion device identity key.
func DeviceSignatureMessage(body, devicePub, accountKey []byte) []byte {
	return BuildBuffer(DeviceSignaturePrefix, body, devicePub, accountKey)
}
