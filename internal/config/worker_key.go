package config

type WorkerKeyStruct struct {
	PersistSummariesQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistSummariesQueue: "persist_summaries_queue",
}
