//go:build windows

package procgroup

import (
	"errors"
	"os/exec"
	"sync"
	"unsafe"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/windows"
)

// windowsGroup realizes Group via a Job Object with the kill-on-job-close
// limit set. The command itself is not mutated by Wrap; containment happens
// entirely through AssignProcessToJobObject after the child has started.
//
// A known race exists between process creation and Assign: if the child
// spawns its own children before AssignProcessToJobObject runs, those
// grandchildren escape containment. Callers should assign as soon as
// possible after Start() returns; there is no portable way to close this
// window without CREATE_SUSPENDED + ResumeThread, which the engine does not
// use because it would delay the Started event.
type windowsGroup struct {
	mu     sync.Mutex
	job    windows.Handle
	active bool
	closed bool
}

func newPlatformGroup() Group {
	return &windowsGroup{job: windows.InvalidHandle}
}

func (g *windowsGroup) Wrap(cmd *exec.Cmd) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		// Wrap has no error return; Assign will fail loudly instead and the
		// engine falls back to direct pid operations.
		return
	}

	info := jobObjectExtendedLimitInformation{}
	info.BasicLimitInformation.LimitFlags = jobObjectLimitKillOnJobClose
	_, _, _ = procSetInformationJobObject.Call(
		uintptr(job),
		uintptr(jobObjectExtendedLimitInformationClass),
		uintptr(unsafe.Pointer(&info)),
		unsafe.Sizeof(info),
	)

	g.mu.Lock()
	g.job = job
	g.mu.Unlock()
}

func (g *windowsGroup) Assign(pid int) error {
	g.mu.Lock()
	job := g.job
	g.mu.Unlock()
	if job == windows.InvalidHandle || job == 0 {
		return ErrNotActive
	}

	const access = windows.PROCESS_SET_QUOTA | windows.PROCESS_TERMINATE | windows.PROCESS_SET_INFORMATION
	proc, err := windows.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(proc)

	if err := windows.AssignProcessToJobObject(job, proc); err != nil {
		return err
	}

	g.mu.Lock()
	g.active = true
	g.mu.Unlock()
	return nil
}

func (g *windowsGroup) Broadcast(action Action) error {
	g.mu.Lock()
	job, active := g.job, g.active
	g.mu.Unlock()
	if !active {
		return ErrNotActive
	}

	switch action {
	case ActionStop:
		return windows.TerminateJobObject(job, 1)
	case ActionPause:
		return forEachJobPid(job, suspendThreadsOf)
	case ActionResume:
		return forEachJobPid(job, resumeThreadsOf)
	case ActionInterrupt:
		return forEachJobPid(job, interruptPid)
	default:
		return errors.New("procgroup: unknown action")
	}
}

func (g *windowsGroup) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active && !g.closed
}

// Close releases the job handle exactly once. Because the job was created
// with JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE, closing the last handle reaps
// every remaining contained process.
func (g *windowsGroup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	g.active = false
	if g.job != windows.InvalidHandle && g.job != 0 {
		err := windows.CloseHandle(g.job)
		g.job = windows.InvalidHandle
		return err
	}
	return nil
}

// jobPids enumerates every pid currently assigned to job via
// QueryInformationJobObject(JobObjectBasicProcessIdList).
func jobPids(job windows.Handle) ([]uint32, error) {
	// Start with room for 64 pids and grow if the job reports more.
	capacity := 64
	for {
		buf := make([]byte, 8+capacity*8) // NumberOfAssignedProcesses, NumberOfProcessIdsInList, then uintptr-sized pids
		var retLen uint32
		ok, _, callErr := procQueryInformationJobObject.Call(
			uintptr(job),
			uintptr(jobObjectBasicProcessIdListClass),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(len(buf)),
			uintptr(unsafe.Pointer(&retLen)),
		)
		if ok == 0 {
			if callErr != windows.ERROR_MORE_DATA {
				return nil, callErr
			}
			capacity *= 2
			continue
		}
		list := (*basicProcessIDList)(unsafe.Pointer(&buf[0]))
		n := int(list.NumberOfProcessIdsInList)
		pids := make([]uint32, 0, n)
		base := uintptr(unsafe.Pointer(&buf[0])) + unsafe.Offsetof(list.ProcessIdList)
		for i := 0; i < n; i++ {
			p := *(*uintptr)(unsafe.Pointer(base + uintptr(i)*unsafe.Sizeof(uintptr(0))))
			pids = append(pids, uint32(p))
		}
		return pids, nil
	}
}

func forEachJobPid(job windows.Handle, fn func(pid uint32) error) error {
	pids, err := jobPids(job)
	if err != nil {
		return err
	}
	var g errgroup.Group
	for _, pid := range pids {
		pid := pid
		g.Go(func() error { return fn(pid) })
	}
	return g.Wait()
}

func suspendThreadsOf(pid uint32) error { return eachThread(pid, suspendOneThread) }
func resumeThreadsOf(pid uint32) error  { return eachThread(pid, resumeOneThread) }

func eachThread(pid uint32, fn func(tid uint32) error) error {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(snap)

	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var firstErr error
	for err := windows.Thread32First(snap, &entry); err == nil; err = windows.Thread32Next(snap, &entry) {
		if entry.OwnerProcessID != pid {
			continue
		}
		if e := fn(entry.ThreadID); e != nil && firstErr == nil {
			firstErr = e
		}
	}
	return firstErr
}

func suspendOneThread(tid uint32) error {
	h, err := windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, tid)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	_, err = windows.SuspendThread(h)
	return err
}

func resumeOneThread(tid uint32) error {
	h, err := windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, tid)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	_, err = windows.ResumeThread(h)
	return err
}

func interruptPid(pid uint32) error {
	r, _, callErr := procGenerateConsoleCtrlEvent.Call(uintptr(windows.CTRL_C_EVENT), uintptr(pid))
	if r == 0 {
		return callErr
	}
	return nil
}

func signalProcess(pid int, action Action) error {
	switch action {
	case ActionStop:
		proc, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
		if err != nil {
			return err
		}
		defer windows.CloseHandle(proc)
		return windows.TerminateProcess(proc, 1)
	case ActionPause:
		return suspendThreadsOf(uint32(pid))
	case ActionResume:
		return resumeThreadsOf(uint32(pid))
	case ActionInterrupt:
		return interruptPid(uint32(pid))
	default:
		return errors.New("procgroup: unknown action")
	}
}

// The remaining Job Object primitives are not exposed by golang.org/x/sys/windows
// as typed wrappers; they are called directly against kernel32, the same
// pattern golang.org/x/sys/windows itself uses internally for lazily-bound
// procedures.
var (
	modkernel32                    = windows.NewLazySystemDLL("kernel32.dll")
	procSetInformationJobObject    = modkernel32.NewProc("SetInformationJobObject")
	procQueryInformationJobObject  = modkernel32.NewProc("QueryInformationJobObject")
	procGenerateConsoleCtrlEvent   = modkernel32.NewProc("GenerateConsoleCtrlEvent")
)

const (
	jobObjectExtendedLimitInformationClass = 9
	jobObjectBasicProcessIdListClass       = 3
	jobObjectLimitKillOnJobClose           = 0x2000
)

type ioCounters struct {
	ReadOperationCount  uint64
	WriteOperationCount uint64
	OtherOperationCount uint64
	ReadTransferCount   uint64
	WriteTransferCount  uint64
	OtherTransferCount  uint64
}

type basicLimitInformation struct {
	PerProcessUserTimeLimit int64
	PerJobUserTimeLimit     int64
	LimitFlags              uint32
	MinimumWorkingSetSize   uintptr
	MaximumWorkingSetSize   uintptr
	ActiveProcessLimit      uint32
	Affinity                uintptr
	PriorityClass           uint32
	SchedulingClass         uint32
}

type jobObjectExtendedLimitInformation struct {
	BasicLimitInformation basicLimitInformation
	IoInfo                ioCounters
	ProcessMemoryLimit    uintptr
	JobMemoryLimit        uintptr
	PeakProcessMemoryUsed uintptr
	PeakJobMemoryUsed     uintptr
}

type basicProcessIDList struct {
	NumberOfAssignedProcesses uint32
	NumberOfProcessIdsInList  uint32
	ProcessIdList             [1]uintptr
}
