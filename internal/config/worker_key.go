package config

type WorkerKeyStruct struct {
	PublishResultsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PublishResultsQueue: "publish_results_queue",
}
