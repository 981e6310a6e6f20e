package relayer

// Wire types of the relayer gateway API.

type keyURLResponse struct {
	Response struct {
		FheKeyInfo []struct {
			FhePublicKey struct {
				DataID string   `json:"data_id"`
				URLs   []string `json:"urls"`
			} `json:"fhe_public_key"`
		} `json:"fhe_key_info"`
	} `json:"response"`
}

type plaintextValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type encryptRequest struct {
	ContractAddress string           `json:"contractAddress"`
	UserAddress     string           `json:"userAddress"`
	Values          []plaintextValue `json:"values"`
}

type encryptResponse struct {
	Handles    []string `json:"handles"`
	InputProof string   `json:"inputProof"`
}

type publicDecryptRequest struct {
	CiphertextHandles []string `json:"ciphertextHandles"`
}

type publicDecryptResponse struct {
	ClearValues           map[string]string `json:"clearValues"`
	AbiEncodedClearValues string            `json:"abiEncodedClearValues"`
	DecryptionProof       string            `json:"decryptionProof"`
}

type errorResponse struct {
	Message string `json:"message"`
}
