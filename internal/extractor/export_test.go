package extractor

var (
	TransferEventSig       = transferEventSig
	TransferSingleEventSig = transferSingleEventSig
	TransferBatchEventSig  = transferBatchEventSig
	PunkAssignEventSig     = punkAssignEventSig
	PunkTransferEventSig   = punkTransferEventSig
	PunkBoughtEventSig     = punkBoughtEventSig
	BatchArguments         = batchArguments
)
