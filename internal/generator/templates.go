package generator

var promptTemplates = map[string][]string{
	"bitcoin": {
		"What is the total amount of the transaction with txid {txid} in block {block}?",
		"List all transactions in block {block} and their respective amounts.",
		"Calculate the total fees paid by transactions in block {block}.",
		"Retrieve the details of the transaction with txid {txid} in block {block}.",
		"Provide the total number of transactions in block {block} and identify the largest transaction by amount.",
		"Determine the fee paid by the transaction with txid {txid} in block {block}.",
		"Identify all addresses involved in the transaction with txid {txid} in block {block}.",
	},
	"ethereum": {
		"What is the total amount of the transaction with txid {txid} in block {block}?",
		"List all transactions in block {block} and their respective amounts.",
		"Calculate the gas fees for all transactions in block {block}.",
		"Retrieve the details of the transaction with txid {txid} in block {block}.",
		"Provide the total number of transactions in block {block} and identify the largest transaction by gas fees.",
		"Determine the gas fees for the transaction with txid {txid} in block {block}.",
		"Identify all addresses involved in the transaction with txid {txid} in block {block}.",
	},
}
