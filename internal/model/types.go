package model

import "time"

// LogEvent represents a Windows event log entry after normalization.
type LogEvent struct {
	TimeCreated *time.Time `json:"timeCreated,omitempty"`
	Level       string     `json:"level"`
	Source      string     `json:"source,omitempty"`
	EventID     uint32     `json:"eventId"`
	Message     string     `json:"message"`
}

type TopEventID struct {
	ID    uint32 `json:"id"`
	Count int    `json:"count"`
}

type TopSource struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// LogSummary stores summarized information for one log channel.
type LogSummary struct {
	LogName     string         `json:"logName"`
	TotalEvents int            `json:"totalEvents"`
	LevelCounts map[string]int `json:"levelCounts"`
	TopEventIDs []TopEventID   `json:"topEventIds"`
	TopSources  []TopSource    `json:"topSources"`
	Recent      []LogEvent     `json:"recent"`
}

type SystemInfo struct {
	ComputerName      string    `json:"computerName"`
	OSName            string    `json:"osName"`
	OSVersion         string    `json:"osVersion"`
	OSBuild           string    `json:"osBuild"`
	OSArchitecture    string    `json:"osArchitecture"`
	LastBootTime      time.Time `json:"lastBootTime"`
	Uptime            string    `json:"uptime"`
	UptimeSeconds     uint64    `json:"uptimeSeconds"`
	UserName          string    `json:"userName"`
	UserDomain        string    `json:"userDomain"`
	ProcessorCount    int       `json:"processorCount"`
	TotalMemoryMB     uint64    `json:"totalMemoryMB"`
	AvailableMemoryMB uint64    `json:"availableMemoryMB"`
}

type ServiceInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Status         string `json:"status"`
	StartType      string `json:"startType"`
	Description    string `json:"description,omitempty"`
	PathName       string `json:"pathName,omitempty"`
	ServiceAccount string `json:"serviceAccount,omitempty"`
}

type ConnectivityResult struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	TCPConnected bool   `json:"tcpConnected"`
	LatencyMs    int64  `json:"latencyMs"`
	Error        string `json:"error,omitempty"`
}

type DNSResult struct {
	HostName    string   `json:"hostName"`
	IPAddresses []string `json:"ipAddresses"`
	Error       string   `json:"error,omitempty"`
}

type NetworkAdapterInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	IPAddresses []string `json:"ipAddresses"`
	MACAddress  string   `json:"macAddress,omitempty"`
}

type PrinterInfo struct {
	Name       string `json:"name"`
	DriverName string `json:"driverName"`
	PortName   string `json:"portName"`
	Status     string `json:"status"`
	IsDefault  bool   `json:"isDefault"`
	IsShared   bool   `json:"isShared"`
	Location   string `json:"location,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

type PrintJobInfo struct {
	JobID         uint32    `json:"jobId"`
	PrinterName   string    `json:"printerName"`
	DocumentName  string    `json:"documentName"`
	Status        string    `json:"status"`
	UserName      string    `json:"userName"`
	SizeBytes     uint64    `json:"sizeBytes"`
	Pages         uint32    `json:"pages"`
	SubmittedTime time.Time `json:"submittedTime"`
}

type LogFileInfo struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	SizeBytes    int64     `json:"sizeBytes"`
	LastModified time.Time `json:"lastModified"`
	Category     string    `json:"category,omitempty"`
}

type LogFileContent struct {
	Path          string   `json:"path"`
	TotalLines    int      `json:"totalLines"`
	ReturnedLines int      `json:"returnedLines"`
	Lines         []string `json:"lines"`
	Error         string   `json:"error,omitempty"`
}

type RegistryKeyInfo struct {
	Path        string              `json:"path"`
	SubKeyNames []string            `json:"subKeyNames"`
	Values      []RegistryValueInfo `json:"values"`
}

type RegistryValueInfo struct {
	Name         string `json:"name"`
	KeyPath      string `json:"keyPath,omitempty"`
	Type         string `json:"type"`
	Value        any    `json:"value"`
	DisplayValue string `json:"displayValue"`
}

type ProcessInfo struct {
	ProcessID          int32      `json:"processId"`
	Name               string     `json:"name"`
	CommandLine        string     `json:"commandLine,omitempty"`
	ExecutablePath     string     `json:"executablePath,omitempty"`
	WorkingDirectory   string     `json:"workingDirectory,omitempty"`
	ParentProcessID    *int32     `json:"parentProcessId,omitempty"`
	StartTime          *time.Time `json:"startTime,omitempty"`
	UserName           string     `json:"userName,omitempty"`
	WorkingSetBytes    uint64     `json:"workingSetBytes"`
	PrivateMemoryBytes uint64     `json:"privateMemoryBytes"`
	VirtualMemoryBytes uint64     `json:"virtualMemoryBytes"`
	CPUPercent         float64    `json:"cpuPercent"`
	ThreadCount        int32      `json:"threadCount"`
	HandleCount        int32      `json:"handleCount"`
	Priority           string     `json:"priority,omitempty"`
}

type ProcessSummary struct {
	TotalProcesses       int           `json:"totalProcesses"`
	TotalThreads         int64         `json:"totalThreads"`
	TotalWorkingSetBytes uint64        `json:"totalWorkingSetBytes"`
	TopCPUProcesses      []ProcessInfo `json:"topCpuProcesses"`
	TopMemoryProcesses   []ProcessInfo `json:"topMemoryProcesses"`
}

type PerformanceSnapshot struct {
	Timestamp                  time.Time `json:"timestamp"`
	CPUUsagePercent            float64   `json:"cpuUsagePercent"`
	MemoryUsagePercent         float64   `json:"memoryUsagePercent"`
	AvailableMemoryBytes       uint64    `json:"availableMemoryBytes"`
	TotalMemoryBytes           uint64    `json:"totalMemoryBytes"`
	DiskReadBytesPerSec        float64   `json:"diskReadBytesPerSec"`
	DiskWriteBytesPerSec       float64   `json:"diskWriteBytesPerSec"`
	NetworkSentBytesPerSec     float64   `json:"networkSentBytesPerSec"`
	NetworkReceivedBytesPerSec float64   `json:"networkReceivedBytesPerSec"`
	ProcessCount               int       `json:"processCount"`
	ThreadCount                int64     `json:"threadCount"`
	HandleCount                int64     `json:"handleCount"`
}

type PerformanceCategory struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Counters    []string `json:"counters"`
	Instances   []string `json:"instances"`
}

type PerformanceCounterValue struct {
	CategoryName string  `json:"categoryName"`
	CounterName  string  `json:"counterName"`
	InstanceName string  `json:"instanceName"`
	Value        float64 `json:"value"`
	Unit         string  `json:"unit,omitempty"`
}

type ScheduledTaskInfo struct {
	Name                     string     `json:"name"`
	Path                     string     `json:"path"`
	Description              string     `json:"description,omitempty"`
	State                    string     `json:"state"`
	LastRunTime              *time.Time `json:"lastRunTime,omitempty"`
	LastRunResult            *int32     `json:"lastRunResult,omitempty"`
	LastRunResultDescription string     `json:"lastRunResultDescription,omitempty"`
	NextRunTime              *time.Time `json:"nextRunTime,omitempty"`
	Author                   string     `json:"author,omitempty"`
	UserID                   string     `json:"userId,omitempty"`
	Triggers                 string     `json:"triggers,omitempty"`
	Actions                  string     `json:"actions,omitempty"`
	IsEnabled                bool       `json:"isEnabled"`
	IsHidden                 bool       `json:"isHidden"`
}

type ScheduledTaskRun struct {
	TaskName          string     `json:"taskName"`
	TaskPath          string     `json:"taskPath"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           *time.Time `json:"endTime,omitempty"`
	ResultCode        int32      `json:"resultCode"`
	ResultDescription string     `json:"resultDescription,omitempty"`
	IsSuccess         bool       `json:"isSuccess"`
}

// ReliabilityEventType mirrors the Reliability Monitor categories.
type ReliabilityEventType string

const (
	ApplicationCrash     ReliabilityEventType = "ApplicationCrash"
	ApplicationHang      ReliabilityEventType = "ApplicationHang"
	WindowsFailure       ReliabilityEventType = "WindowsFailure"
	HardwareFailure      ReliabilityEventType = "HardwareFailure"
	MiscellaneousFailure ReliabilityEventType = "MiscellaneousFailure"
	DriverInstall        ReliabilityEventType = "DriverInstall"
	ApplicationInstall   ReliabilityEventType = "ApplicationInstall"
	ApplicationUninstall ReliabilityEventType = "ApplicationUninstall"
	WindowsUpdate        ReliabilityEventType = "WindowsUpdate"
)

type ReliabilityEvent struct {
	Timestamp      time.Time            `json:"timestamp"`
	EventType      ReliabilityEventType `json:"eventType"`
	Source         string               `json:"source"`
	Description    *string              `json:"description,omitempty"`
	FaultingModule *string              `json:"faultingModule,omitempty"`
	ExceptionCode  *string              `json:"exceptionCode,omitempty"`
	Version        *string              `json:"version,omitempty"`
	IsSuccess      bool                 `json:"isSuccess"`
}

// ReliabilityScore is one calendar day of the stability index.
type ReliabilityScore struct {
	Date                  time.Time `json:"date"`
	Score                 float64   `json:"score"`
	ApplicationCrashes    int       `json:"applicationCrashes"`
	ApplicationHangs      int       `json:"applicationHangs"`
	WindowsFailures       int       `json:"windowsFailures"`
	MiscellaneousFailures int       `json:"miscellaneousFailures"`
}

type WindowsUpdateInfo struct {
	UpdateID    string     `json:"updateId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	InstalledOn *time.Time `json:"installedOn,omitempty"`
	Result      string     `json:"result,omitempty"`
	KBArticleID string     `json:"kbArticleId,omitempty"`
	SupportURL  string     `json:"supportUrl,omitempty"`
	Category    string     `json:"category,omitempty"`
	IsInstalled bool       `json:"isInstalled"`
	IsMandatory bool       `json:"isMandatory"`
}

type WindowsUpdateStatus struct {
	LastCheckTime         *time.Time `json:"lastCheckTime,omitempty"`
	LastInstallTime       *time.Time `json:"lastInstallTime,omitempty"`
	IsRebootRequired      bool       `json:"isRebootRequired"`
	PendingUpdatesCount   int        `json:"pendingUpdatesCount"`
	InstalledUpdatesCount int        `json:"installedUpdatesCount"`
	LastError             string     `json:"lastError,omitempty"`
}

type WindowsUpdateFailure struct {
	UpdateID         string    `json:"updateId"`
	Title            string    `json:"title"`
	FailureTime      time.Time `json:"failureTime"`
	ErrorCode        string    `json:"errorCode"`
	ErrorDescription string    `json:"errorDescription,omitempty"`
}

// UpdateLog holds Windows Update log excerpts.
type UpdateLog struct {
	Source  string   `json:"source"`
	Summary string   `json:"summary"`
	Excerpt []string `json:"excerpt"`
}
