package ethereum

// LicenseContractABI exposes licenseContractABI to the external test package.
const LicenseContractABI = licenseContractABI
